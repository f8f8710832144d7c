// indextool loads JSON documents into an in-process database, builds
// indexes over them and runs document queries — a workbench for inspecting
// index behavior on real data.
package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	whitedb "github.com/jpl-au/whitedb"
)

var (
	inputFile string
	indexCols []int
)

var rootCmd = &cobra.Command{
	Use:           "indextool",
	Short:         "Inspect whitedb index behavior on JSON data",
	SilenceUsage:  true,
	SilenceErrors: false,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&inputFile, "file", "f", "",
		"JSON input file (one document per line, or one document)")
	rootCmd.AddCommand(loadCmd, queryCmd, checkCmd)
	loadCmd.Flags().IntSliceVarP(&indexCols, "column", "c", nil,
		"create a T-tree index on this kv-pair column (repeatable)")
}

// loadFile parses the input: either one JSON document per line, or a
// single document spanning the file.
func loadFile(db *whitedb.DB) (int, error) {
	if inputFile == "" {
		return 0, fmt.Errorf("no input file (use --file)")
	}
	data, err := os.ReadFile(inputFile)
	if err != nil {
		return 0, err
	}
	if _, err := db.ParseJSONDocument(data); err == nil {
		return 1, nil
	}
	// Not a single document; take the input as one document per line.
	docs := 0
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if _, err := db.ParseJSONDocument([]byte(line)); err != nil {
			return docs, err
		}
		docs++
	}
	return docs, nil
}

var loadCmd = &cobra.Command{
	Use:   "load",
	Short: "Load documents and report database statistics",
	RunE: func(cmd *cobra.Command, args []string) error {
		db := whitedb.New(whitedb.Config{})
		docs, err := loadFile(db)
		if err != nil {
			return err
		}
		for _, col := range indexCols {
			id, err := db.CreateIndex([]int{col}, whitedb.IndexTypeTTree, nil)
			if err != nil {
				return fmt.Errorf("create index on column %d: %w", col, err)
			}
			fmt.Printf("index %d created on column %d\n", id, col)
		}
		records := 0
		for rec, ok := db.FirstRecord(); ok; rec, ok = db.NextRecord(rec) {
			records++
		}
		fmt.Printf("documents loaded: %d\nrecords: %d\nindexes: %d\n",
			docs, records, len(db.GetAllIndexes()))
		return nil
	},
}

var queryCmd = &cobra.Command{
	Use:   "query key=value [key=value ...]",
	Short: "Find documents containing every given key-value pair",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		db := whitedb.New(whitedb.Config{})
		if _, err := loadFile(db); err != nil {
			return err
		}
		kvCols := []int{whitedb.SchemaKeyOffset, whitedb.SchemaValueOffset}
		if _, err := db.CreateIndex(kvCols, whitedb.IndexTypeHashJSON, nil); err != nil {
			return err
		}

		clauses := make([]whitedb.JSONArg, 0, len(args))
		for _, arg := range args {
			key, val, ok := strings.Cut(arg, "=")
			if !ok {
				return fmt.Errorf("argument %q is not key=value", arg)
			}
			clauses = append(clauses, whitedb.JSONArg{
				Key:   db.EncodeStr(key, ""),
				Value: parseValue(db, val),
			})
		}

		q, err := db.MakeJSONQuery(clauses)
		if err != nil {
			return err
		}
		n := 0
		for {
			rec, ok := q.Fetch()
			if !ok {
				break
			}
			out, err := db.GenerateJSON(rec)
			if err != nil {
				return err
			}
			fmt.Println(string(out))
			n++
		}
		fmt.Printf("%d documents matched\n", n)
		return nil
	},
}

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Build indexes over the input and verify their invariants",
	RunE: func(cmd *cobra.Command, args []string) error {
		db := whitedb.New(whitedb.Config{})
		if _, err := loadFile(db); err != nil {
			return err
		}
		keyIdx, err := db.CreateIndex([]int{whitedb.SchemaKeyOffset},
			whitedb.IndexTypeTTree, nil)
		if err != nil {
			return err
		}
		kvCols := []int{whitedb.SchemaKeyOffset, whitedb.SchemaValueOffset}
		hashIdx, err := db.CreateIndex(kvCols, whitedb.IndexTypeHashJSON, nil)
		if err != nil {
			return err
		}
		for _, id := range []whitedb.IndexId{keyIdx, hashIdx} {
			if err := db.ValidateIndex(id); err != nil {
				return fmt.Errorf("index %d: %w", id, err)
			}
			fmt.Printf("index %d ok\n", id)
		}
		return nil
	},
}

// parseValue encodes a CLI literal: integers and floats as numbers,
// everything else as a string.
func parseValue(db *whitedb.DB, s string) whitedb.Value {
	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		return db.EncodeInt(i)
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return db.EncodeDouble(f)
	}
	return db.EncodeStr(s, "")
}
