package triplestore

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/boutros/triplestore/internal/term"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "store"), Options{})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestInsertAndLookup(t *testing.T) {
	db := openTestDB(t)

	alice := term.NewURI("http://ex/alice")
	knows := term.NewURI("http://ex/knows")
	bob := term.NewURI("http://ex/bob")

	require.NoError(t, db.Insert(term.Triple{Subj: alice, Pred: knows, Obj: bob}))

	s, err := db.Lookup(&alice, nil, nil)
	require.NoError(t, err)
	defer s.Close()

	tr, ok, err := s.Next()
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, tr.Obj.Equal(bob))

	_, ok, err = s.Next()
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestLookup_UnknownBoundTermYieldsEmptyStream(t *testing.T) {
	db := openTestDB(t)
	ghost := term.NewURI("http://ex/never-inserted")

	s, err := db.Lookup(&ghost, nil, nil)
	require.NoError(t, err)
	defer s.Close()

	_, ok, err := s.Next()
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestInsertBatch(t *testing.T) {
	db := openTestDB(t)
	p := term.NewURI("http://ex/p")
	trs := []term.Triple{
		{Subj: term.NewURI("http://ex/a"), Pred: p, Obj: term.NewURI("http://ex/b")},
		{Subj: term.NewURI("http://ex/b"), Pred: p, Obj: term.NewURI("http://ex/c")},
	}
	require.NoError(t, db.InsertBatch(trs))

	s, err := db.Lookup(nil, &p, nil)
	require.NoError(t, err)
	defer s.Close()

	var count int
	for {
		_, ok, err := s.Next()
		require.NoError(t, err)
		if !ok {
			break
		}
		count++
	}
	assert.Equal(t, 2, count)
}

func TestMaterialize_EndToEnd(t *testing.T) {
	db := openTestDB(t)
	p := term.NewURI("http://ex/p")
	a, b, c, d := term.NewURI("http://ex/a"), term.NewURI("http://ex/b"), term.NewURI("http://ex/c"), term.NewURI("http://ex/d")

	for _, tr := range []term.Triple{{Subj: a, Pred: p, Obj: b}, {Subj: b, Pred: p, Obj: c}, {Subj: c, Pred: p, Obj: d}} {
		require.NoError(t, db.Insert(tr))
	}

	pID, found, err := db.TermToID(p)
	require.NoError(t, err)
	require.True(t, found)

	rules := []Rule{{
		Name: "transitivity",
		Head: Pattern{Subj: Var("X"), Pred: Const(pID), Obj: Var("Z")},
		Body: []Pattern{
			{Subj: Var("X"), Pred: Const(pID), Obj: Var("Y")},
			{Subj: Var("Y"), Pred: Const(pID), Obj: Var("Z")},
		},
	}}

	stats, err := db.Materialize(context.Background(), rules, MaterializeOptions{})
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Rounds)
	assert.Equal(t, 3, stats.TotalDerived)

	s, err := db.Lookup(&a, &p, &d)
	require.NoError(t, err)
	defer s.Close()
	_, ok, err := s.Next()
	require.NoError(t, err)
	assert.True(t, ok, "transitivity should have derived (a,p,d)")
}

func TestInsert_RejectedWhileMaterializing(t *testing.T) {
	db := openTestDB(t)
	db.mu.Lock()
	db.state = stateReasoning
	db.mu.Unlock()

	err := db.Insert(term.Triple{Subj: term.NewURI("http://ex/a"), Pred: term.NewURI("http://ex/p"), Obj: term.NewURI("http://ex/b")})
	require.Error(t, err)
	assert.Equal(t, KindTypeMismatch, KindOf(err))
}
