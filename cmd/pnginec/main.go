// Command pnginec compiles a PNGine DSL source file to a bytecode module.
package main

import (
	"flag"
	"log"
	"os"

	"github.com/pngine/pngine"
	"github.com/pngine/pngine/bytecode"
	"github.com/pngine/pngine/dispatcher"
	"github.com/pngine/pngine/dispatcher/mockbackend"
	"github.com/pngine/pngine/reflector"
)

func main() {
	var (
		output  = flag.String("o", "a.pngb", "output bytecode file")
		baseDir = flag.String("basedir", ".", "directory #import paths resolve against")
		dump    = flag.Bool("dump", false, "print a disassembly of the compiled bytecode instead of writing it")
		dryRun  = flag.Bool("dry-run", false, "replay the compiled module against an in-memory backend and report any runtime error")
		maxOps  = flag.Uint("max-opcodes", 0, "override the dispatcher's per-run opcode limit (0 = default)")
	)
	flag.Parse()

	if flag.NArg() != 1 {
		log.Fatalf("usage: pnginec [flags] <source.pgn>")
	}
	path := flag.Arg(0)

	src, err := os.ReadFile(path)
	if err != nil {
		log.Fatalf("read %s: %v", path, err)
	}

	opts := pngine.DefaultOptions()
	opts.BaseDir = *baseDir
	opts.Reflector = reflector.NewTextualReflector()
	opts.MaxOpcodes = uint32(*maxOps)

	mod, diags, err := pngine.Compile(src, opts)
	if err != nil {
		log.Fatalf("compile %s: %v", path, diags)
	}

	if *dump {
		text, err := bytecode.Disassemble(mod)
		if err != nil {
			log.Fatalf("disassemble: %v", err)
		}
		os.Stdout.WriteString(text)
		return
	}

	if *dryRun {
		d := dispatcher.New(mockbackend.New(), mod)
		if opts.MaxOpcodes > 0 {
			d.SetMaxOpcodes(opts.MaxOpcodes)
		}
		if err := d.RunInit(0); err != nil {
			log.Fatalf("dry run init: %v", err)
		}
		if err := d.RunActiveFrame(0); err != nil {
			log.Fatalf("dry run frame: %v", err)
		}
		log.Printf("dry run ok: %d bytes of bytecode, %d bytes of data\n", len(mod.Bytecode), len(mod.Data))
		return
	}

	encoded := mod.Encode()
	if err := os.WriteFile(*output, encoded, 0o644); err != nil {
		log.Fatalf("write %s: %v", *output, err)
	}
	log.Printf("wrote %s (%d bytes)\n", *output, len(encoded))
}
