// Command todo is a CLI client for the todo server.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/hugo-r/server-challenge/internal/model"
)

// ---- config/token store ----

type tokenFile struct {
	AccessToken string    `json:"access_token"`
	ExpiresAt   time.Time `json:"expires_at,omitzero"`
}

func cfgDir() string {
	if v := os.Getenv("XDG_CONFIG_HOME"); v != "" {
		return filepath.Join(v, "todos")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "todos")
}

func tokenPath() string { return filepath.Join(cfgDir(), "token.json") }

// saveToken stores the session cookie value. A zero exp never expires locally.
func saveToken(tok string, exp time.Time) error {
	if err := os.MkdirAll(cfgDir(), 0o700); err != nil {
		return err
	}
	f, err := os.OpenFile(tokenPath(), os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
	if err != nil {
		return err
	}
	defer f.Close()
	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	return enc.Encode(tokenFile{AccessToken: tok, ExpiresAt: exp})
}

func loadToken() (string, error) {
	b, err := os.ReadFile(tokenPath())
	if err != nil {
		return "", err
	}
	var tf tokenFile
	if err := json.Unmarshal(b, &tf); err != nil {
		return "", err
	}
	if tf.AccessToken == "" || (!tf.ExpiresAt.IsZero() && time.Now().After(tf.ExpiresAt)) {
		return "", errors.New("no valid token (login required)")
	}
	return tf.AccessToken, nil
}

func dropToken() error {
	err := os.Remove(tokenPath())
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}

// ---- utils ----

func readAll(p string) ([]byte, error) {
	if p == "-" {
		return io.ReadAll(os.Stdin)
	}
	return os.ReadFile(p)
}

func printJSON(v any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(v)
}

// parseID reads a positional todo id.
func parseID(args []string) (int64, error) {
	if len(args) != 1 {
		return 0, errors.New("need exactly one todo id")
	}
	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil || id < 1 {
		return 0, fmt.Errorf("bad todo id %q", args[0])
	}
	return id, nil
}

// description joins positional words, or reads -file when given.
func description(args []string, file string) (string, error) {
	if file != "" {
		b, err := readAll(file)
		if err != nil {
			return "", err
		}
		return strings.TrimSpace(string(b)), nil
	}
	return strings.TrimSpace(strings.Join(args, " ")), nil
}

func usage() {
	fmt.Fprintf(os.Stderr, `todo CLI
Usage:
  todo -addr URL [-cookie name] [-insecure] <cmd> [args]

Commands:
  version
  login      -u <username> -p <password>           (saves token)
  logout
  list       [-filter COMPLETE|INCOMPLETE] [-order DATE_ADDED|DESCRIPTION]
  add        <description...> | -file <path|->
  edit       [-state COMPLETE|INCOMPLETE] [-desc <text>] <id>
  done       <id>
  rm         <id>
`)
	os.Exit(2)
}

// ---- main ----

var (
	version   = "dev"
	buildDate = "unknown"
)

// main dispatches subcommands against the server's HTTP API.
func main() {
	// global flags
	addr := flag.String("addr", "http://localhost:3000", "server URL")
	cookie := flag.String("cookie", "", "session cookie name (default todos-cookie)")
	insecure := flag.Bool("insecure", false, "skip cert verify (dev)")
	flag.Usage = usage
	flag.Parse()

	if flag.NArg() < 1 {
		usage()
	}
	cmd, args := flag.Arg(0), flag.Args()[1:]

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if cmd == "version" {
		fmt.Printf("todo %s (%s)\n", version, buildDate)
		return
	}

	cl, err := newClient(*addr, *cookie, *insecure)
	if err != nil {
		fail(err)
	}
	if err := run(ctx, cl, cmd, args); err != nil {
		fail(err)
	}
}

// run executes one subcommand. Commands other than login and logout need a saved token.
func run(ctx context.Context, cl *client, cmd string, args []string) error {
	switch cmd {
	case "login":
		fs := flag.NewFlagSet("login", flag.ContinueOnError)
		u := fs.String("u", "", "username")
		p := fs.String("p", "", "password")
		if err := fs.Parse(args); err != nil {
			return err
		}
		if *u == "" || *p == "" {
			return errors.New("need -u and -p")
		}
		tok, exp, err := cl.login(ctx, *u, *p)
		if err != nil {
			return err
		}
		if err := saveToken(tok, exp); err != nil {
			return err
		}
		fmt.Println("ok")
		return nil

	case "logout":
		if tok, err := loadToken(); err == nil {
			_ = cl.withToken(tok).logout(ctx)
		}
		return dropToken()
	}

	token, err := loadToken()
	if err != nil {
		return err
	}
	cl = cl.withToken(token)

	switch cmd {
	case "list":
		fs := flag.NewFlagSet("list", flag.ContinueOnError)
		filter := fs.String("filter", "", "COMPLETE or INCOMPLETE")
		order := fs.String("order", "", "DATE_ADDED or DESCRIPTION")
		if err := fs.Parse(args); err != nil {
			return err
		}
		todos, err := cl.list(ctx, *filter, *order)
		if err != nil {
			return err
		}
		printJSON(todos)

	case "add":
		fs := flag.NewFlagSet("add", flag.ContinueOnError)
		file := fs.String("file", "", "read description from file ('-'=stdin)")
		if err := fs.Parse(args); err != nil {
			return err
		}
		desc, err := description(fs.Args(), *file)
		if err != nil {
			return err
		}
		if desc == "" {
			return errors.New("need a description")
		}
		t, err := cl.add(ctx, desc)
		if err != nil {
			return err
		}
		printJSON(t)

	case "edit":
		fs := flag.NewFlagSet("edit", flag.ContinueOnError)
		state := fs.String("state", "", "COMPLETE or INCOMPLETE")
		desc := fs.String("desc", "", "new description")
		if err := fs.Parse(args); err != nil {
			return err
		}
		id, err := parseID(fs.Args())
		if err != nil {
			return err
		}
		if *state == "" && *desc == "" {
			return errors.New("need -state or -desc")
		}
		t, err := cl.patch(ctx, id, *state, *desc)
		if err != nil {
			return err
		}
		printJSON(t)

	case "done":
		id, err := parseID(args)
		if err != nil {
			return err
		}
		t, err := cl.patch(ctx, id, string(model.StateComplete), "")
		if err != nil {
			return err
		}
		printJSON(t)

	case "rm":
		id, err := parseID(args)
		if err != nil {
			return err
		}
		if err := cl.remove(ctx, id); err != nil {
			return err
		}
		fmt.Println("ok")

	default:
		usage()
	}
	return nil
}

// ---- helpers ----

func fail(err error) {
	var ae *apiError
	if errors.As(err, &ae) {
		fmt.Fprintf(os.Stderr, "server error: status=%d msg=%s\n", ae.Status, strings.TrimSpace(ae.Body))
		os.Exit(1)
	}
	fmt.Fprintln(os.Stderr, err)
	os.Exit(1)
}
