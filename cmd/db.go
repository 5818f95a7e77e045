package cmd

import (
	"fmt"
	"sort"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"

	"github.com/derickschaefer/timeseries/internal/store"
)

var dbCmd = &cobra.Command{
	Use:   "db",
	Short: "Inspect and manage the local preset database",
	Long: `Commands for inspecting, clearing and compacting the local bbolt database
that holds saved presets. The location comes from db_path in config.json or
TIMESERIES_DB_PATH.`,
}

// ─── db stats ─────────────────────────────────────────────────────────────────

var dbStatsCmd = &cobra.Command{
	Use:     "stats",
	Short:   "Show row counts and sizes for each bucket",
	Example: `  timeseries db stats`,
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		deps, err := buildDeps()
		if err != nil {
			return err
		}
		st, err := deps.RequireStore()
		if err != nil {
			return err
		}
		defer deps.Close()

		stats, err := st.Stats()
		if err != nil {
			return errors.Wrap(err, "reading store stats")
		}
		version, err := st.SchemaVersion()
		if err != nil {
			return err
		}
		size, err := st.FileSize()
		if err != nil {
			return err
		}

		// Sort by bucket name for deterministic output
		sort.Slice(stats, func(i, j int) bool { return stats[i].Name < stats[j].Name })

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Database: %s  (schema v%d, %s on disk)\n\n", st.Path(), version, humanBytes(size))
		printSimpleTable(out, []string{"BUCKET", "ROWS", "SIZE"}, func(add func(...string)) {
			for _, s := range stats {
				add(s.Name, fmt.Sprintf("%d", s.Count), humanBytes(s.Bytes))
			}
		})
		return nil
	},
}

// ─── db clear ─────────────────────────────────────────────────────────────────

var (
	dbClearAll    bool
	dbClearBucket string
)

var dbClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete entries from the local database",
	Long: `Delete entries from one or all buckets.

bbolt does not shrink the file after clearing; free pages are reused on the
next write. Run 'timeseries db compact' afterwards to reclaim disk space.`,
	Example: `  timeseries db clear --all
  timeseries db clear --bucket presets`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if !dbClearAll && dbClearBucket == "" {
			return errors.Newf("specify --all or --bucket <name>\n\nBuckets: %s", strings.Join(store.AllBuckets, ", "))
		}
		if dbClearBucket != "" && !knownBucket(dbClearBucket) {
			return errors.Newf("unknown bucket %q\n\nBuckets: %s", dbClearBucket, strings.Join(store.AllBuckets, ", "))
		}

		deps, err := buildDeps()
		if err != nil {
			return err
		}
		st, err := deps.RequireStore()
		if err != nil {
			return err
		}
		defer deps.Close()

		out := cmd.OutOrStdout()
		if dbClearAll {
			if err := st.ClearAll(); err != nil {
				return errors.Wrap(err, "clearing all buckets")
			}
			fmt.Fprintln(out, "✓ Cleared all buckets")
		} else {
			if err := st.ClearBucket(dbClearBucket); err != nil {
				return err
			}
			fmt.Fprintf(out, "✓ Cleared bucket %q\n", dbClearBucket)
		}
		fmt.Fprintln(out, "  Run 'timeseries db compact' to reclaim disk space.")
		return nil
	},
}

// ─── db compact ───────────────────────────────────────────────────────────────

var dbCompactCmd = &cobra.Command{
	Use:   "compact",
	Short: "Rewrite the database file to reclaim freed disk space",
	Long: `Compact copies all live data to a fresh file, replaces the original with it,
and reopens the database.`,
	Example: `  timeseries db compact`,
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		deps, err := buildDeps()
		if err != nil {
			return err
		}
		st, err := deps.RequireStore()
		if err != nil {
			return err
		}
		// Compact reopens the bolt handle itself; the Store stays valid.
		defer deps.Close()

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Compacting %s ...\n", st.Path())

		before, after, err := st.Compact()
		if err != nil {
			return errors.Wrap(err, "compaction failed")
		}

		saved := before - after
		fmt.Fprintf(out, "✓ Compaction complete\n")
		fmt.Fprintf(out, "  Before: %s\n", humanBytes(before))
		fmt.Fprintf(out, "  After:  %s\n", humanBytes(after))
		if saved > 0 {
			fmt.Fprintf(out, "  Saved:  %s\n", humanBytes(saved))
		} else {
			fmt.Fprintln(out, "  No space reclaimed (database was already compact).")
		}
		return nil
	},
}

// ─── Registration ─────────────────────────────────────────────────────────────

func init() {
	rootCmd.AddCommand(dbCmd)
	dbCmd.AddCommand(dbStatsCmd)
	dbCmd.AddCommand(dbClearCmd)
	dbCmd.AddCommand(dbCompactCmd)

	dbClearCmd.Flags().BoolVar(&dbClearAll, "all", false, "clear all buckets")
	dbClearCmd.Flags().StringVar(&dbClearBucket, "bucket", "", "clear a specific bucket: presets")
}

// ─── Helpers ──────────────────────────────────────────────────────────────────

func knownBucket(name string) bool {
	for _, b := range store.AllBuckets {
		if b == name {
			return true
		}
	}
	return false
}

func humanBytes(b int64) string {
	switch {
	case b >= 1<<20:
		return fmt.Sprintf("%.1f MB", float64(b)/(1<<20))
	case b >= 1<<10:
		return fmt.Sprintf("%.1f KB", float64(b)/(1<<10))
	default:
		return fmt.Sprintf("%d B", b)
	}
}
