package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/TheCount/bob"
)

func printHelp() {
	fmt.Println(`
bobctl

Available Commands:
  GET            Print the object's current bytes
  SET <value>    Replace the object's bytes
  STAT           Print the resolved block size, cue size, and segment offset
  FLUSH          Commit and fsync without changing the object
  EXIT           Terminate this session
`)
}

func printPrompt() {
	fmt.Print("> ")
}

func processInput(b *bob.BOB, line string) {
	fields := strings.Fields(line)
	if len(fields) < 1 {
		return
	}
	command := strings.ToLower(fields[0])

	switch command {
	default:
		fmt.Printf("Unknown command %q\n", command)
	case "get":
		processGetCommand(b)
	case "set":
		processSetCommand(b, fields[1:])
	case "stat":
		processStatCommand(b)
	case "flush":
		processFlushCommand(b)
	case "exit":
		os.Exit(0)
	}
}

func processGetCommand(b *bob.BOB) {
	cur := b.Current()
	if cur == nil {
		fmt.Println("(empty)")
		return
	}
	fmt.Println(string(cur))
}

func processSetCommand(b *bob.BOB, args []string) {
	if len(args) < 1 {
		fmt.Println("Usage: SET <value>")
		return
	}
	if err := b.Set([]byte(strings.Join(args, " "))); err != nil {
		fmt.Printf("error: %v\n", err)
		return
	}
	fmt.Println("OK.")
}

func processStatCommand(b *bob.BOB) {
	st, err := b.Stat()
	if err != nil {
		fmt.Printf("error: %v\n", err)
		return
	}
	fmt.Printf("blocksize=%d cuesize=%d segmentStart=%d\n", st.BlockSize, st.CueSize, st.SegmentStart)
}

func processFlushCommand(b *bob.BOB) {
	if err := b.Flush(); err != nil {
		fmt.Printf("error: %v\n", err)
		return
	}
	fmt.Println("OK.")
}
