package main

import (
	"flag"
	"fmt"
	"os"

	"codemanager/internal/cli"
)

func main() {
	addr := flag.String("addr", "http://localhost:8090", "Code manager base URL")
	flag.Parse()

	client := cli.NewClient(*addr)
	repl := cli.NewREPL(client, os.Stdout)

	fmt.Println("code manager cli, type help for commands")
	if err := repl.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "cli: %v\n", err)
		os.Exit(1)
	}
}
