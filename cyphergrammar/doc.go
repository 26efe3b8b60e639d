// Package cyphergrammar provides a parser for the supported Cypher subset
// built with participle.
//
// This package contains the lexer, AST types, and parser for CREATE,
// MATCH/OPTIONAL MATCH, WITH, UNWIND and RETURN, plus the full expression
// and pattern grammar they share. MERGE, DELETE, SET, REMOVE, CALL and
// UNION are not part of the grammar.
//
// # Key Features
//
//   - Proper disambiguation of list literals vs list comprehensions
//   - Case-insensitive keyword matching
//   - Type-safe AST with lexer.Position tracking
//
// # Usage
//
//	ast, err := cyphergrammar.Parse("MATCH (u:User) RETURN u.name")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	// Work with ast...
//
// # Grammar Origin
//
// The grammar is based on the openCypher specification:
// https://github.com/opencypher/openCypher
package cyphergrammar
