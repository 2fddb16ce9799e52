package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/drpcorg/kladov"
	"github.com/drpcorg/kladov/config"
	"github.com/drpcorg/kladov/oid"
	"github.com/drpcorg/kladov/schema"
	"github.com/ergochat/readline"
	"github.com/joho/godotenv"
)

var completer = readline.NewPrefixCompleter(
	readline.PcItem("help"),
	readline.PcItem("types"),
	readline.PcItem("create"),
	readline.PcItem("show"),
	readline.PcItem("get"),
	readline.PcItem("set"),
	readline.PcItem("add"),
	readline.PcItem("delete"),
	readline.PcItem("find"),
	readline.PcItem("reindex"),
	readline.PcItem("exit"),
	readline.PcItem("quit"),
)

const usage = `commands:
  types                        list object types and their fields
  create <Type>                create an object
  show <id>                    print every field of an object
  get <id> <field>             print one field
  set <id> <field> <value>     write a simple or reference field
  add <id> <field> <value>     append to a list, add to a set or adjust a counter
  delete <id>                  delete an object with its cascade
  find <index sid> <value>     list objects whose indexed value equals value
  reindex <index sid>          rebuild one index
`

var ErrUsage = errors.New("wrong arguments, try help")

func filterInput(r rune) (rune, bool) {
	switch r {
	// block CtrlZ feature
	case readline.CharCtrlZ:
		return r, false
	}
	return r, true
}

func loadConfig(args []string) (*config.Config, error) {
	cfg := config.DefaultConfig()
	if len(args) > 1 {
		var err error
		if cfg, err = config.LoadFromFile(args[1]); err != nil {
			return nil, err
		}
	}
	config.LoadFromEnv(cfg)
	return cfg, nil
}

func lookupField(db *kladov.DB, id oid.ID, name string) (*schema.Field, error) {
	t, err := db.Schema().TypeOf(id)
	if err != nil {
		return nil, err
	}
	return t.Field(name)
}

func formatField(tx *kladov.Tx, id oid.ID, f *schema.Field) (string, error) {
	switch f.Kind {
	case schema.Simple, schema.Reference:
		v, err := tx.ReadSimpleField(id, f.StorageID)
		if err != nil {
			return "", err
		}
		return f.Encoding.FormatAny(v), nil
	case schema.Counter:
		v, err := tx.ReadCounter(id, f.StorageID)
		return strconv.FormatInt(v, 10), err
	case schema.List, schema.Set:
		var vals []any
		var err error
		if f.Kind == schema.List {
			var l *kladov.List
			if l, err = tx.List(id, f.StorageID); err == nil {
				vals, err = l.Values()
			}
		} else {
			var s *kladov.Set
			if s, err = tx.Set(id, f.StorageID); err == nil {
				vals, err = s.Values()
			}
		}
		if err != nil {
			return "", err
		}
		parts := make([]string, len(vals))
		for i, v := range vals {
			parts[i] = f.Element().Encoding.FormatAny(v)
		}
		return "[" + strings.Join(parts, ", ") + "]", nil
	case schema.Map:
		m, err := tx.Map(id, f.StorageID)
		if err != nil {
			return "", err
		}
		entries, err := m.Entries()
		if err != nil {
			return "", err
		}
		parts := make([]string, len(entries))
		for i, e := range entries {
			parts[i] = f.MapKey().Encoding.FormatAny(e.Key) + ": " + f.MapValue().Encoding.FormatAny(e.Value)
		}
		return "{" + strings.Join(parts, ", ") + "}", nil
	}
	return "", fmt.Errorf("unsupported field kind %s", f.Kind)
}

func showObject(db *kladov.DB, out io.Writer, id oid.ID) error {
	t, err := db.Schema().TypeOf(id)
	if err != nil {
		return err
	}
	return db.Update(func(tx *kladov.Tx) error {
		_, _ = fmt.Fprintf(out, "%s %s\n", t.Name, id)
		for _, f := range t.Fields {
			s, err := formatField(tx, id, f)
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintf(out, "\t%s\t%s\n", f.Name, s)
		}
		return nil
	})
}

func addValue(tx *kladov.Tx, id oid.ID, f *schema.Field, arg string) error {
	switch f.Kind {
	case schema.Counter:
		delta, err := strconv.ParseInt(arg, 10, 64)
		if err != nil {
			return err
		}
		return tx.AdjustCounter(id, f.StorageID, delta)
	case schema.List:
		v, err := f.Element().Encoding.ParseAny(arg)
		if err != nil {
			return err
		}
		l, err := tx.List(id, f.StorageID)
		if err != nil {
			return err
		}
		return l.Append(v)
	case schema.Set:
		v, err := f.Element().Encoding.ParseAny(arg)
		if err != nil {
			return err
		}
		s, err := tx.Set(id, f.StorageID)
		if err != nil {
			return err
		}
		_, err = s.Add(v)
		return err
	}
	return fmt.Errorf("cannot add to %s field %s", f.Kind, f.Name)
}

// execute runs one shell command against db.
func execute(db *kladov.DB, out io.Writer, cmd string, args []string) error {
	parseID := func(i int) (oid.ID, error) {
		if len(args) <= i {
			return oid.Nil, ErrUsage
		}
		return oid.Parse(args[i])
	}
	switch cmd {
	case "", "help":
		_, _ = fmt.Fprint(out, usage)
	case "types":
		for _, t := range db.Schema().Types() {
			_, _ = fmt.Fprintln(out, t)
			for _, f := range t.Fields {
				_, _ = fmt.Fprintf(out, "\t%s\n", f)
			}
		}
	case "create":
		if len(args) != 1 {
			return ErrUsage
		}
		return db.Update(func(tx *kladov.Tx) error {
			id, err := tx.Create(args[0])
			if err == nil {
				_, _ = fmt.Fprintln(out, id)
			}
			return err
		})
	case "show":
		id, err := parseID(0)
		if err != nil {
			return err
		}
		return showObject(db, out, id)
	case "get", "set", "add":
		id, err := parseID(0)
		if err != nil {
			return err
		}
		if len(args) < 2 || (cmd != "get" && len(args) != 3) {
			return ErrUsage
		}
		f, err := lookupField(db, id, args[1])
		if err != nil {
			return err
		}
		return db.Update(func(tx *kladov.Tx) error {
			switch cmd {
			case "get":
				s, err := formatField(tx, id, f)
				if err == nil {
					_, _ = fmt.Fprintln(out, s)
				}
				return err
			case "set":
				v, err := f.Encoding.ParseAny(args[2])
				if err != nil {
					return err
				}
				return tx.WriteSimpleField(id, f.StorageID, v)
			default:
				return addValue(tx, id, f, args[2])
			}
		})
	case "delete":
		id, err := parseID(0)
		if err != nil {
			return err
		}
		return db.Update(func(tx *kladov.Tx) error {
			ok, err := tx.Delete(id)
			if err == nil && !ok {
				_, _ = fmt.Fprintf(out, "%s does not exist\n", id)
			}
			return err
		})
	case "find":
		if len(args) != 2 {
			return ErrUsage
		}
		sid, err := strconv.ParseUint(args[0], 10, 64)
		if err != nil {
			return err
		}
		ix, err := db.Schema().Index(sid)
		if err != nil {
			return err
		}
		v, err := ix.Indexed().Encoding.ParseAny(args[1])
		if err != nil {
			return err
		}
		return db.Update(func(tx *kladov.Tx) error {
			x, err := tx.QueryIndex(sid)
			if err != nil {
				return err
			}
			objs, ok, err := x.AsMap().Get(v)
			if err != nil || !ok {
				return err
			}
			for id, err := range objs.All() {
				if err != nil {
					return err
				}
				_, _ = fmt.Fprintln(out, id)
			}
			return nil
		})
	case "reindex":
		if len(args) != 1 {
			return ErrUsage
		}
		sid, err := strconv.ParseUint(args[0], 10, 64)
		if err != nil {
			return err
		}
		n, err := db.Reindex(context.Background(), sid)
		if err == nil {
			_, _ = fmt.Fprintf(out, "%d entries\n", n)
		}
		return err
	default:
		return fmt.Errorf("command unknown: %s", cmd)
	}
	return nil
}

func main() {
	_ = godotenv.Load()

	cfg, err := loadConfig(os.Args)
	if err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(-2)
	}
	db, err := config.Open(cfg)
	if err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(-1)
	}

	l, err := readline.NewEx(&readline.Config{
		Prompt:          "◌ ",
		HistoryFile:     "/tmp/kladov.readline.tmp",
		AutoComplete:    completer,
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",

		HistorySearchFold:   true,
		FuncFilterInputRune: filterInput,
	})
	if err != nil {
		panic(err)
	}
	defer l.Close()
	l.CaptureExitSignal()

	for {
		line, err := l.Readline()
		if err == readline.ErrInterrupt {
			if len(line) == 0 {
				break
			} else {
				continue
			}
		} else if err == io.EOF {
			break
		}

		args := strings.Fields(line)
		if len(args) == 0 {
			continue
		}
		cmd := args[0]
		if cmd == "exit" || cmd == "quit" {
			break
		}
		if err := execute(db, os.Stdout, cmd, args[1:]); err != nil {
			_, _ = fmt.Fprintf(os.Stderr, "Error executing %s: %s\n", cmd, err.Error())
		}
	}

	if err := db.Close(); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(-1)
	}
}
