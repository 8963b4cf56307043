// Command bobctl is a small demo/inspection tool for BOB files: parse
// flags, open or create the target, then hand off to an interactive
// command loop.
package main

import (
	"bufio"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/TheCount/bob"
	"github.com/go-faker/faker/v4"
)

var (
	path      *string
	blockSize *uint
	cueSize   *uint
	create    *bool
	seed      *bool
)

func setupFlags() {
	path = flag.String("path", "demo.bob", "Path to the BOB file to open or create.")
	blockSize = flag.Uint("blocksize", 0, "Requested block size in bytes (0 = auto).")
	cueSize = flag.Uint("cuesize", 0, "Requested cue size in bytes (0 = auto).")
	create = flag.Bool("create", false, "Create the file instead of opening it.")
	seed = flag.Bool("seed", false, "Seed the file with a faker-generated payload after opening.")
	flag.Usage = func() {
		fmt.Println("\nbobctl\n\nArguments:")
		flag.PrintDefaults()
	}
	flag.Parse()
}

func openOrCreate() (*bob.BOB, error) {
	if *create {
		cfg := bob.DefaultConfig()
		if err := cfg.SetBlockSize(uint64(*blockSize)); err != nil {
			return nil, err
		}
		if err := cfg.SetCueSize(uint64(*cueSize)); err != nil {
			return nil, err
		}
		return bob.Create(cfg, *path)
	}
	return bob.Open(*path)
}

func seedDemoPayload(b *bob.BOB) {
	payload := []byte(faker.Paragraph())
	if err := b.Set(payload); err != nil {
		log.Fatalf("seed: %v", err)
	}
	log.Printf("seeded %d bytes", len(payload))
}

func main() {
	setupFlags()

	b, err := openOrCreate()
	if err != nil {
		log.Fatal(err)
	}
	defer func() {
		if err := b.Close(); err != nil {
			log.Printf("close: %v", err)
		}
	}()

	if *seed {
		seedDemoPayload(b)
	}

	printHelp()
	printPrompt()
	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		processInput(b, scanner.Text())
		printPrompt()
	}
}
