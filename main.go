package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"ssmvm/vm"
)

var debug = flag.Bool("debug", false, "Trace each instruction to stderr and dump the stack to ./coredump.txt on failure.")

func main() {
	log.SetFlags(0)
	flag.Parse()

	if flag.NArg() != 1 {
		log.Println("Usage: ssmvm [--debug] <path>")
		flag.PrintDefaults()
		os.Exit(1)
	}
	path := flag.Arg(0)

	prog, err := loadProgram(path)
	if err != nil {
		log.Fatalf("load: %v", err)
	}

	machine := vm.New(prog)
	defer machine.Close()

	if *debug {
		runDebug(machine)
		return
	}

	if err := machine.Run(); err != nil {
		log.Println(err)
	}
}

// loadProgram implements the CLI's file-extension dispatch: a .bin path loads bytecode
// directly, anything else is assembled to a sibling .bin file (same
// stem) and that result is what gets executed.
func loadProgram(path string) (vm.Program, error) {
	if strings.HasSuffix(path, ".bin") {
		return vm.ReadBin(path)
	}

	source, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	prog, err := vm.Assemble(string(source))
	if err != nil {
		return nil, err
	}

	binPath := strings.TrimSuffix(path, filepath.Ext(path)) + ".bin"
	if err := vm.WriteBin(binPath, prog); err != nil {
		return nil, err
	}
	return prog, nil
}

// runDebug single-steps the program, tracing to stderr with a pause
// between instructions and writing a core dump on failure. This
// is the "optional step trace hook" the core stays entirely unaware
// of: it drives vm.Step directly rather than asking the VM to log.
func runDebug(machine *vm.VM) {
	for {
		pc := machine.PC()
		halted, err := machine.Step()
		log.Printf("%04d: %s", pc, instructionAt(machine, pc))
		if halted {
			if err != nil {
				log.Println(err)
				writeCoreDump(machine)
			}
			return
		}
		time.Sleep(100 * time.Millisecond)
	}
}

func instructionAt(machine *vm.VM, pc uint64) string {
	prog := machine.Program()
	if pc >= uint64(len(prog)) {
		return "<halted>"
	}
	return prog[pc].String()
}

func writeCoreDump(machine *vm.VM) {
	f, err := os.Create("coredump.txt")
	if err != nil {
		log.Printf("coredump: %v", err)
		return
	}
	defer f.Close()

	for i, word := range machine.StackSnapshot() {
		if _, err := fmt.Fprintf(f, "%04d: %d\n", i, word); err != nil {
			log.Printf("coredump: %v", err)
			return
		}
	}
}
