// cmd/sounds/main.go
//
// Maintenance CLI for the sound board table. Run it against the same
// datastore file the bot uses, while the bot is stopped.
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/jukebot/jukebot/internal/config"
	"github.com/jukebot/jukebot/internal/storage"
)

func usage() {
	fmt.Fprintf(os.Stderr, `Usage:
  sounds list
  sounds add <name> <file>
  sounds remove <name>

The file given to "add" must exist under SOUND_DIR and is stored by its
base name.
`)
	os.Exit(2)
}

func main() {
	if len(os.Args) < 2 {
		usage()
	}

	cfg, err := config.New()
	if err != nil {
		fatal(err)
	}

	store, err := storage.New(cfg.StoragePath)
	if err != nil {
		fatal(err)
	}
	defer store.Close()

	switch os.Args[1] {
	case "list":
		table, err := store.AllSounds()
		if err != nil {
			fatal(err)
		}
		if len(table) == 0 {
			fmt.Println("no sounds registered")
			return
		}
		names := make([]string, 0, len(table))
		for name := range table {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			fmt.Printf("%-20s %s\n", name, table[name])
		}

	case "add":
		if len(os.Args) != 4 {
			usage()
		}
		name, file := os.Args[2], filepath.Base(os.Args[3])
		if _, err := os.Stat(filepath.Join(cfg.SoundDir, file)); err != nil {
			fatal(fmt.Errorf("sound file not found in %s: %w", cfg.SoundDir, err))
		}
		if err := store.SetSound(name, file); err != nil {
			fatal(err)
		}
		fmt.Printf("added %q -> %s\n", name, file)

	case "remove":
		if len(os.Args) != 3 {
			usage()
		}
		removed, err := store.RemoveSound(os.Args[2])
		if err != nil {
			fatal(err)
		}
		if !removed {
			fmt.Printf("no sound named %q\n", os.Args[2])
			return
		}
		fmt.Printf("removed %q\n", os.Args[2])

	default:
		usage()
	}
}

func fatal(err error) {
	fmt.Fprintln(os.Stderr, "error:", err)
	os.Exit(1)
}
