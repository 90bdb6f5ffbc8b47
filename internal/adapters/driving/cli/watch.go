package cli

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/sercha-rag/internal/connectors/filesystem"
	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/logger"
)

// watchDebounce collapses bursts of events for one file (editors often
// write a file several times when saving).
const watchDebounce = 300 * time.Millisecond

var watchSkipInitial bool

var watchCmd = &cobra.Command{
	Use:   "watch [dir]",
	Short: "Keep a directory indexed as it changes",
	Long: `Indexes every supported file under dir, then re-ingests files as they
are created or saved and removes them from the index when deleted.
Runs until interrupted.`,
	Args: cobra.ExactArgs(1),
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().BoolVar(&watchSkipInitial, "skip-initial", false, "do not index existing files first")
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	if ingestionService == nil {
		return errors.New("ingestion service not configured")
	}

	logger.SetTimestamps(true)
	defer logger.SetTimestamps(false)

	ctx := commandContext(cmd)
	connector := filesystem.New(args[0], supportedExtensions)
	if err := connector.Validate(); err != nil {
		return err
	}

	if !watchSkipInitial {
		if _, _, err := ingestPath(ctx, cmd, args[0]); err != nil {
			return err
		}
	}

	changes, err := connector.Watch(ctx)
	if err != nil {
		return err
	}
	defer connector.Close()

	cmd.Printf("Watching %s (Ctrl-C to stop)\n", args[0])

	d := newDebouncer(watchDebounce)
	defer d.stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case change, ok := <-changes:
			if !ok {
				return nil
			}
			d.add(change)
		case change := <-d.ready:
			applyChange(ctx, cmd, change)
		}
	}
}

// applyChange mirrors one file event into the index.
func applyChange(ctx context.Context, cmd *cobra.Command, change filesystem.Change) {
	switch change.Type {
	case filesystem.ChangeDeleted:
		err := ingestionService.DeleteByFilename(ctx, change.Document.Filename)
		switch {
		case errors.Is(err, domain.ErrNotFound):
			logger.Debug("%s was not indexed", change.Document.Filename)
		case err != nil:
			cmd.PrintErrf("Failed to delete %s: %v\n", change.Document.Filename, err)
		default:
			cmd.Printf("Removed %s\n", change.Document.Filename)
		}
	default:
		doc := change.Document
		ingestRaw(ctx, cmd, &doc)
	}
}

// debouncer releases the latest change per path once it has been quiet
// for the delay.
type debouncer struct {
	delay time.Duration
	ready chan filesystem.Change
	done  chan struct{}

	mu      sync.Mutex
	pending map[string]*time.Timer
	latest  map[string]filesystem.Change
	stopped bool
}

func newDebouncer(delay time.Duration) *debouncer {
	return &debouncer{
		delay:   delay,
		ready:   make(chan filesystem.Change, 64),
		done:    make(chan struct{}),
		pending: make(map[string]*time.Timer),
		latest:  make(map[string]filesystem.Change),
	}
}

func (d *debouncer) add(change filesystem.Change) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.stopped {
		return
	}

	d.latest[change.Path] = change
	if t, ok := d.pending[change.Path]; ok {
		t.Reset(d.delay)
		return
	}
	path := change.Path
	d.pending[path] = time.AfterFunc(d.delay, func() { d.fire(path) })
}

func (d *debouncer) fire(path string) {
	d.mu.Lock()
	change, ok := d.latest[path]
	delete(d.latest, path)
	delete(d.pending, path)
	d.mu.Unlock()

	if !ok {
		return
	}
	select {
	case d.ready <- change:
	case <-d.done:
	}
}

func (d *debouncer) stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.stopped {
		return
	}
	d.stopped = true
	close(d.done)
	for _, t := range d.pending {
		t.Stop()
	}
}
