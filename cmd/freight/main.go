package main

import (
	"fmt"
	"log"
	"os"

	"github.com/zulfikawr/freight/cmd/freight/commands"
	"github.com/zulfikawr/freight/cmd/freight/completion"
	"github.com/zulfikawr/freight/cmd/freight/ui"
)

func main() {
	log.SetFlags(0)

	enableColors := os.Getenv("NO_COLOR") == ""
	for _, a := range os.Args[1:] {
		if a == "--no-color" {
			enableColors = false
			break
		}
	}
	ui.SetColorsEnabled(enableColors)

	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	var err error
	switch os.Args[1] {
	case "serve":
		err = commands.Serve(filterGlobalFlags(os.Args[2:]))
	case "send":
		err = commands.Send(filterGlobalFlags(os.Args[2:]))
	case "status":
		err = commands.Status(filterGlobalFlags(os.Args[2:]))
	case "cancel":
		err = commands.Cancel(filterGlobalFlags(os.Args[2:]))
	case "sessions":
		err = commands.Sessions(filterGlobalFlags(os.Args[2:]))
	case "config":
		err = commands.Config(filterGlobalFlags(os.Args[2:]))
	case "completion":
		err = completion.Generate(filterGlobalFlags(os.Args[2:]))
	case "-h", "--help", "help":
		usage()
	default:
		usage()
		os.Exit(2)
	}

	if err != nil {
		fmt.Fprintln(os.Stderr, ui.C.Red+"Error:"+ui.C.Reset, err)
		os.Exit(1)
	}
}

// filter out global flags that subcommands don't recognize
func filterGlobalFlags(args []string) []string {
	out := make([]string, 0, len(args))
	for _, a := range args {
		if a == "--no-color" {
			continue
		}
		out = append(out, a)
	}
	return out
}

func usage() {
	c := ui.C
	fmt.Println(c.Dim + "resumable chunked file transfer over HTTP" + c.Reset)
	fmt.Println()

	fmt.Println(c.Bold + "Usage:" + c.Reset)
	fmt.Println("  " + c.Green + "freight serve" + c.Reset + " [flags]")
	fmt.Println("  " + c.Green + "freight send" + c.Reset + " [flags] <path>")
	fmt.Println("  " + c.Green + "freight status" + c.Reset + " [flags] <session-id>")
	fmt.Println("  " + c.Green + "freight cancel" + c.Reset + " [flags] <session-id>")
	fmt.Println("  " + c.Green + "freight sessions" + c.Reset + " [flags]")
	fmt.Println("  " + c.Green + "freight config" + c.Reset + " [show|edit|path]")
	fmt.Println()

	fmt.Println(c.Bold + "Commands:" + c.Reset)
	fmt.Println("  " + c.Magenta + "serve" + c.Reset + "     Receive chunked uploads into a directory")
	fmt.Println("  " + c.Magenta + "send" + c.Reset + "      Upload a file in resumable chunks")
	fmt.Println("  " + c.Magenta + "status" + c.Reset + "    Show the progress of one upload session")
	fmt.Println("  " + c.Magenta + "cancel" + c.Reset + "    Abort an upload session and delete its chunks")
	fmt.Println("  " + c.Magenta + "sessions" + c.Reset + "  List upload sessions on a server")
	fmt.Println("  " + c.Magenta + "config" + c.Reset + "    Manage configuration file")
	fmt.Println("  " + c.Magenta + "completion" + c.Reset + " Generate shell completion scripts")
	fmt.Println()

	fmt.Println(c.Bold + "Examples:" + c.Reset)
	fmt.Println("  " + c.Green + "freight serve" + c.Reset + " -d ./uploads          " + c.Dim + "# Receive uploads" + c.Reset)
	fmt.Println("  " + c.Green + "freight send" + c.Reset + " ./backup.tar          " + c.Dim + "# Upload a file" + c.Reset)
	fmt.Println("  " + c.Green + "freight send" + c.Reset + " --discover ./photo.jpg " + c.Dim + "# Find a server via mDNS" + c.Reset)
	fmt.Println("  " + c.Green + "freight sessions" + c.Reset + " --resumable        " + c.Dim + "# List resumable uploads" + c.Reset)
	fmt.Println()
	fmt.Println(c.Dim + "Use \"freight <command> -h\" for command-specific help." + c.Reset)
}
