// garnet CLI - inspect configuration and the compiled body cache
package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/tliron/commonlog"
	_ "github.com/tliron/commonlog/simple"

	"github.com/chazu/garnet/codecache"
	"github.com/chazu/garnet/config"
)

func main() {
	configDir := flag.String("config", ".", "Directory to search upward from for garnet.toml")
	verbose := flag.Bool("v", false, "Verbose output")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: garnet [options] <command>\n\n")
		fmt.Fprintf(os.Stderr, "Commands:\n")
		fmt.Fprintf(os.Stderr, "  config                  Print the effective configuration\n")
		fmt.Fprintf(os.Stderr, "  cache list              List cached bodies\n")
		fmt.Fprintf(os.Stderr, "  cache show <key>        Disassemble a cached body (key prefix)\n")
		fmt.Fprintf(os.Stderr, "  cache purge             Delete every cached body\n")
		fmt.Fprintf(os.Stderr, "\nOptions:\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	cfg, err := config.FindAndLoad(*configDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	verbosity := cfg.Log.Verbosity
	if *verbose {
		verbosity += 2
	}
	commonlog.Configure(verbosity, nil)

	if err := run(cfg, flag.Args()); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		if errors.Is(err, errUsage) {
			flag.Usage()
			os.Exit(2)
		}
		os.Exit(1)
	}
}

var errUsage = errors.New("usage")

func run(cfg *config.Config, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("%w: no command given", errUsage)
	}
	switch args[0] {
	case "config":
		data, err := cfg.Encode()
		if err != nil {
			return err
		}
		_, err = os.Stdout.Write(data)
		return err
	case "cache":
		return runCache(cfg, args[1:])
	}
	return fmt.Errorf("%w: unknown command %q", errUsage, args[0])
}

func runCache(cfg *config.Config, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("%w: cache needs a subcommand", errUsage)
	}
	cache, err := codecache.OpenFor(cfg)
	if errors.Is(err, codecache.ErrDisabled) {
		return fmt.Errorf("%w; set cache.enabled in %s", err, config.FileName)
	}
	if err != nil {
		return err
	}
	defer cache.Close()
	store := cache.Store()

	switch args[0] {
	case "list":
		entries, err := store.List()
		if err != nil {
			return err
		}
		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "KEY\tNAME\tSIZE\tCREATED")
		for _, e := range entries {
			fmt.Fprintf(w, "%s\t%s\t%d\t%s\n", e.Key[:12], e.Name, e.Size, e.Created.Format("2006-01-02 15:04:05"))
		}
		return w.Flush()

	case "show":
		if len(args) != 2 {
			return fmt.Errorf("%w: cache show needs a key prefix", errUsage)
		}
		key, data, err := store.GetPrefix(args[1])
		if err != nil {
			return err
		}
		body, err := codecache.DecodeDetached(data)
		if err != nil {
			return err
		}
		fmt.Printf("; %s\n", key)
		fmt.Print(body.Disassemble())
		return nil

	case "purge":
		n, err := store.Purge()
		if err != nil {
			return err
		}
		fmt.Printf("Removed %d cached bodies from %s\n", n, store.Path())
		return nil
	}
	return fmt.Errorf("%w: unknown cache subcommand %q", errUsage, args[0])
}
