// Command triplestore is a minimal CLI for inspecting a store: open a
// database directory and report whether one triple, given as three IRIs,
// is present. It does not list pattern matches, does not parse any RDF
// serialization, and is not a SPARQL engine.
//
// Grounded on boutros/sopp/cmd/sopp's flag.String/flag.Bool/log.SetPrefix
// shape, pared down to match spec §1's non-goals (no Turtle import, no
// dump, no query language) while keeping the same "open the db, do one
// thing, exit" structure.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/boutros/triplestore"
	"github.com/boutros/triplestore/internal/term"
)

func main() {
	log.SetFlags(0)
	log.SetPrefix("triplestore: ")

	has := flag.String("has", "", "check whether a triple is stored, as \"<subj> <pred> <obj>\"")

	flag.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: triplestore <flags> <database directory>")
		flag.PrintDefaults()
	}
	flag.Parse()

	if len(flag.Args()) < 1 {
		flag.Usage()
		os.Exit(1)
	}

	db, err := triplestore.Open(flag.Args()[0], triplestore.Options{})
	if err != nil {
		log.Fatal(err)
	}
	defer db.Close()

	if *has != "" {
		runHas(db, *has)
	}
}

func runHas(db *triplestore.DB, spo string) {
	var s, p, o string
	if _, err := fmt.Sscanf(spo, "%s %s %s", &s, &p, &o); err != nil {
		log.Fatalf("cannot parse %q as \"<subj> <pred> <obj>\": %v", spo, err)
	}

	subj, pred, obj := term.NewURI(s), term.NewURI(p), term.NewURI(o)
	stream, err := db.Lookup(&subj, &pred, &obj)
	if err != nil {
		log.Fatal(err)
	}
	defer stream.Close()

	_, ok, err := stream.Next()
	if err != nil {
		log.Fatal(err)
	}
	fmt.Println(ok)
}
