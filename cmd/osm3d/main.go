package main

import (
	"fmt"
	"os"

	"github.com/omniscale/osm3d"
	"github.com/omniscale/osm3d/config"
	"github.com/omniscale/osm3d/import_"
	"github.com/omniscale/osm3d/log"
)

func PrintCmds() {
	fmt.Fprintf(os.Stderr, "Usage: %s COMMAND [args]\n\n", os.Args[0])
	fmt.Fprintln(os.Stderr, "Available commands:")
	fmt.Fprintln(os.Stderr, "\timport")
	fmt.Fprintln(os.Stderr, "\tversion")
}

func Main(usage func()) {
	if len(os.Args) <= 1 {
		usage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "import":
		opts := config.ParseImport(os.Args[2:])
		import_.Import(opts)
	case "version":
		fmt.Println(osm3d.Version)
		os.Exit(0)
	default:
		usage()
		log.Fatalf("[fatal] invalid command: '%s'", os.Args[1])
	}
	os.Exit(0)
}

func main() {
	Main(PrintCmds)
}
