// Copyright 2025, Jason S. McMullan <jason.mcmullan@gmail.com>

package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"time"

	"github.com/ezrec/dynarec/config"
	"github.com/ezrec/dynarec/core"
	"github.com/ezrec/dynarec/emulator"
	"github.com/ezrec/dynarec/translate"
)

func main() {
	var compile string
	var configPath string
	var engine string
	var bench time.Duration
	var dump bool
	var input string
	var output string
	var lang string
	var verbose bool

	flag.StringVar(&compile, "c", "", ".s file to assemble and run")
	flag.StringVar(&configPath, "config", "", ".toml configuration file")
	flag.StringVar(&engine, "core", "", "Execution engine (jit or interpreter)")
	flag.DurationVar(&bench, "bench", 0, "Benchmark both engines for this long, do not execute")
	flag.BoolVar(&dump, "dump", false, "Dump the first compiled unit after running")
	flag.StringVar(&input, "i", "-", "DMA input")
	flag.StringVar(&output, "o", "-", "DMA output")
	flag.StringVar(&lang, "lang", "", "Message language (BCP 47 tag)")
	flag.BoolVar(&verbose, "v", false, "Verbose mode")

	flag.Parse()

	if len(lang) != 0 {
		translate.SetLanguage(lang)
	}

	if flag.NArg() != 0 {
		log.Fatalf("%v: Unknown arguments: %v", os.Args[0], flag.Args())
	}

	if len(compile) == 0 {
		log.Fatalf("%v: -c is required", os.Args[0])
	}

	cfg := config.Default()
	if len(configPath) != 0 {
		var err error
		cfg, err = config.Load(configPath)
		if err != nil {
			log.Fatal(err)
		}
	}
	if len(engine) != 0 {
		cfg.Jit.Core = engine
	}
	if verbose {
		cfg.Verbose = true
	}

	emu, err := emulator.NewEmulator(cfg)
	if err != nil {
		log.Fatal(err)
	}
	defer emu.Close()

	emu.Console = os.Stdout

	inf, err := os.Open(compile)
	if err != nil {
		log.Fatalf("%v: %v", compile, err)
	}
	prog, err := emu.Assemble(inf)
	inf.Close()
	if err != nil {
		log.Fatalf("%v: %v", compile, err)
	}

	if input == "-" {
		emu.Dma.Input = os.Stdin
	} else {
		inf, err := os.Open(input)
		if err != nil {
			log.Fatalf("%v: %v", input, err)
		}
		defer inf.Close()
		emu.Dma.Input = inf
	}

	if output == "-" {
		emu.Dma.Output = os.Stdout
	} else {
		ouf, err := os.Create(output)
		if err != nil {
			log.Fatalf("%v: %v", output, err)
		}
		defer ouf.Close()
		emu.Dma.Output = ouf
	}

	err = emu.Load(prog)
	if err != nil {
		log.Fatal(err)
	}

	if bench != 0 {
		interp, err := emu.Benchmark(core.CORE_INTERPRETER, bench)
		if err != nil {
			log.Fatal(err)
		}
		jitted, err := emu.Benchmark(core.CORE_JIT, bench)
		if err != nil {
			log.Fatal(err)
		}
		translate.Fprintf(os.Stdout, "interpreter: %.1f runs/s\n", interp)
		translate.Fprintf(os.Stdout, "jit:         %.1f runs/s\n", jitted)
		translate.Fprintf(os.Stdout, "Jit was %fx faster than interp.\n", jitted/interp)
	} else {
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		err = emu.Run(ctx)
		stop()
		if err != nil {
			log.Fatal(err)
		}
	}

	if dump {
		err = emu.Dump(os.Stdout)
		if err != nil {
			log.Fatal(err)
		}
	}
}
