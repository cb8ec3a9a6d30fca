package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/mrivero/charge-controller/db"
)

func main() {
	var dbPath, command string
	flag.StringVar(&dbPath, "db", "data/charger.db", "Path to the sqlite state database")
	flag.StringVar(&command, "cmd", "dump", "Command to run: dump, reset-cycle")
	help := flag.Bool("help", false, "Show help")
	flag.Parse()

	if *help {
		fmt.Println("\nUsage of charger-debug:")
		fmt.Println("  -db string\tPath to the sqlite state database (default 'data/charger.db')")
		fmt.Println("  -cmd string\tCommand to run: dump, reset-cycle")
		fmt.Println("  -help\tShow this help message")
		os.Exit(0)
	}

	var err error
	switch command {
	case "dump":
		err = db.DumpCLI(dbPath)
	case "reset-cycle":
		err = db.ResetCycleCLI(dbPath)
	default:
		fmt.Printf("Unknown command: %s\n", command)
		os.Exit(1)
	}

	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}
}
