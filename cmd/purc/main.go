// cmd/purc/main.go
package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/purlang/purc/internal/ast"
	"github.com/purlang/purc/internal/commands"
	"github.com/purlang/purc/internal/compiler"
	"github.com/purlang/purc/internal/diagnostics"
)

const version = "1.0.0"

func main() {
	args := os.Args[1:]
	if len(args) == 0 {
		showUsage()
		return
	}

	switch args[0] {
	case "--help", "-h", "help":
		showUsage()
	case "--version", "-v", "version":
		fmt.Printf("purc %s\n", version)
	case "init":
		if err := commands.InitCommand(args[1:]); err != nil {
			log.Fatalf("Error: %v", err)
		}
	case "clean":
		if err := commands.CleanCommand(args[1:]); err != nil {
			log.Fatalf("Error: %v", err)
		}
	case "build":
		runBuild(args[1:])
	case "disasm":
		if len(args) < 2 {
			log.Fatal("usage: purc disasm <image-file>")
		}
		if err := commands.DisasmCommand(args[1]); err != nil {
			diagnostics.Render(os.Stderr, err)
			os.Exit(1)
		}
	default:
		fmt.Fprintf(os.Stderr, "Error: unknown command %q\n", args[0])
		showUsage()
		os.Exit(1)
	}
}

// runBuild compiles the built-in demo module (spec §8 scenario: an
// identity clause) and writes/disassembles its image. A real front end
// would hand BuildCommand an *ast.Block parsed from a .pur file, but
// that parser is an external collaborator outside this repository's
// spec (spec §1) — this command still exercises the full compile ->
// encode -> cache -> disassemble pipeline end to end.
func runBuild(args []string) {
	opts := commands.BuildOptions{OutputPath: "out.purimg", Dump: true}
	for _, a := range args {
		switch a {
		case "--no-dump":
			opts.Dump = false
		case "--cache":
			opts.CachePath = "purc.cache"
		}
	}

	block := &ast.Block{Children: []ast.Node{
		&ast.Path{Name: "main", Clause: &ast.Clause{
			Param: &ast.Ident{Name: "X"},
			Body:  &ast.Ident{Name: "X"},
		}},
	}}

	mod := compiler.Module{Name: "main", MajorVersion: 1}
	err := commands.BuildCommand(context.Background(), mod, block, []byte("main (X): X\n"), opts)
	if err != nil {
		diagnostics.Render(os.Stderr, err)
		os.Exit(1)
	}
	fmt.Printf("wrote %s\n", opts.OutputPath)
}

func showUsage() {
	fmt.Println("purc - the purlang back-end compiler")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  purc build [--cache] [--no-dump]   Compile the demo module to out.purimg")
	fmt.Println("  purc disasm <file>                 Print a compiled image's disassembly")
	fmt.Println("  purc init [name]                   Scaffold a new project directory")
	fmt.Println("  purc clean [cache-path]             Remove a build cache database")
	fmt.Println("  purc --version                      Show version")
}
