package cmd

import (
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/autobrr/contentdir/pkg/client"
	"github.com/autobrr/contentdir/pkg/config"
	"github.com/autobrr/contentdir/pkg/content"
	"github.com/autobrr/contentdir/pkg/expression"
	"github.com/autobrr/contentdir/pkg/logger"
	"github.com/autobrr/contentdir/pkg/notification"
)

func WatchCommand() *cobra.Command {
	var flagFilter string

	command := &cobra.Command{
		Use:   "watch [CLIENT]",
		Short: "Watch a client's content for category and tag changes",
		Long: `This command mirrors a torrent client into a content directory and reports every
category or tag change for each file, optionally filtered by an expression.`,
		Example: `  contentdir watch qbt
  contentdir watch qbt --filter 'HasCategory("tv") && !Complete'`,
		Args: cobra.ExactArgs(1),
	}

	command.RunE = func(cmd *cobra.Command, args []string) error {
		initCore(true)

		log := logger.GetLogger("watch")

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		filterText := config.Config.Watch.Filter
		if cmd.Flags().Changed("filter") {
			filterText = flagFilter
		}

		var filter *expression.CompiledExpression
		if filterText != "" {
			var err error
			if filter, err = expression.Compile(filterText); err != nil {
				return err
			}
			log.Infof("Using filter: %s", filter.Text)
		}

		s, err := newSession(ctx, args[0], log)
		if err != nil {
			return err
		}
		defer s.Close()

		res, err := s.syncer.Sync(ctx)
		if err != nil {
			return err
		}
		log.Infof("Loaded %d torrents (%d skipped)", res.Added, res.Skipped)

		resolved := s.resolveFiles()
		log.Infof("Watching %d files across %d torrents", resolved, s.downloads.Len())

		s.directory.Listeners().AddFunc(func(f *content.File, kind content.ChangeKind) {
			snap := f.Snapshot()
			if ok, err := filter.Match(ctx, snap); err != nil || !ok {
				return
			}

			switch kind {
			case content.CategoryChanged:
				log.Infof("[%s] %s: category %v", snap.Hash.Short(), snap.Name, snap.Categories)
			case content.TagsChanged:
				log.Infof("[%s] %s: tags %v", snap.Hash.Short(), snap.Name, snap.Tags)
			}
		})

		noti := notification.NewDiscordSender(log, config.Config.Notifications)
		collector := notification.NewCollector(filter, log)
		s.directory.AddListener(collector)

		start := time.Now()
		err = s.syncer.Run(ctx, s.config.PollInterval, func(res client.SyncResult) {
			if res.Added > 0 {
				log.Debugf("Resolved %d files after %d new torrents", s.resolveFiles(), res.Added)
			}

			if collector.Len() == 0 {
				return
			}

			if err := collector.Flush(noti, config.Config.Notifications.Title, time.Since(start)); err != nil {
				log.WithError(err).Error("Failed sending notification")
			}
		})

		if ctx.Err() != nil {
			log.Info("Stopped watching")
			return nil
		}
		return err
	}

	command.Flags().StringVar(&flagFilter, "filter", "", "Only report files matching this expression")

	return command
}
