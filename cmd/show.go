package cmd

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/autobrr/contentdir/pkg/content"
	"github.com/autobrr/contentdir/pkg/logger"
)

func ShowCommand() *cobra.Command {
	command := &cobra.Command{
		Use:   "show [CLIENT] [HASH] [INDEX]",
		Short: "Show the content properties of a torrent's files",
		Long:  `This command prints the creation date, categories, tags, progress and ETA of a torrent's files.`,
		Example: `  contentdir show qbt 0123456789abcdef0123456789abcdef01234567
  contentdir show qbt 0123456789abcdef0123456789abcdef01234567 2`,
		Args: cobra.RangeArgs(2, 3),
	}

	command.RunE = func(cmd *cobra.Command, args []string) error {
		initCore(false)

		log := logger.GetLogger("show")
		ctx := cmd.Context()

		hash, err := content.ParseHash(args[1])
		if err != nil {
			return err
		}

		index := -1
		if len(args) == 3 {
			if index, err = strconv.Atoi(args[2]); err != nil {
				return fmt.Errorf("invalid file index %q: %w", args[2], err)
			}
		}

		s, err := newSession(ctx, args[0], log)
		if err != nil {
			return err
		}
		defer s.Close()

		if _, err := s.syncer.Sync(ctx); err != nil {
			return err
		}

		d, ok := s.downloads.Get(hash)
		if !ok {
			return fmt.Errorf("torrent not found: %s", hash)
		}

		first, last := 0, d.FileCount()-1
		if index >= 0 {
			first, last = index, index
		}

		fmt.Printf("%s (%s)\n", d.Name(), hash)
		for i := first; i <= last; i++ {
			f, ok := s.directory.LookupFile(hash, i)
			if !ok {
				return fmt.Errorf("file %d not found in %s", i, hash)
			}
			printSnapshot(f.Snapshot())
		}

		return nil
	}

	return command
}

func printSnapshot(s content.Snapshot) {
	eta := "unknown"
	switch {
	case s.ETA == 0:
		eta = "done"
	case s.ETA > 0 && s.ETA != content.UnknownETA:
		eta = (time.Duration(s.ETA) * time.Second).String()
	}

	added := "unknown"
	if !s.CreationDate.IsZero() {
		added = humanize.Time(s.CreationDate)
	}

	fmt.Printf("  [%d] %s (%s)\n", s.Index, s.Name, humanize.IBytes(uint64(s.Length)))
	fmt.Printf("      added: %s  progress: %.1f%%  eta: %s\n", added, float64(s.PercentDone)/10, eta)
	fmt.Printf("      categories: %s  tags: %s\n", joinOrNone(s.Categories), joinOrNone(s.Tags))
}

func joinOrNone(values []string) string {
	if len(values) == 0 {
		return "-"
	}
	return strings.Join(values, ", ")
}
