package sploit

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"
)

// Options holds the flags of the sploit command.
type Options struct {
	URL      string
	Username string
	Password string
	Hits     int
	Workers  int
	Timeout  time.Duration
	Flush    bool
}

// NewRootCommand creates the sploit command: register, log in, then fire a
// burst of concurrent attacks sharing one session.
func NewRootCommand() *cobra.Command {
	opts := &Options{}

	cmd := &cobra.Command{
		Use:   "sploit",
		Short: "Fire concurrent attacks at a scruffy server",
		Long: "Registers a fresh player, logs in and fires a burst of concurrent /hit requests\n" +
			"that share one session, then prints the final status.",
		SilenceUsage: true,
		PreRunE: func(cmd *cobra.Command, args []string) error {
			if opts.Hits < 1 {
				return fmt.Errorf("hits must be positive, got %d", opts.Hits)
			}
			if opts.Workers < 1 {
				return fmt.Errorf("workers must be positive, got %d", opts.Workers)
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.URL, "url", "http://127.0.0.1:9000", "server base URL")
	cmd.Flags().StringVarP(&opts.Username, "username", "u", "", "username (random when empty)")
	cmd.Flags().StringVarP(&opts.Password, "password", "p", "", "password (random when empty)")
	cmd.Flags().IntVarP(&opts.Hits, "hits", "n", 50, "number of attacks")
	cmd.Flags().IntVarP(&opts.Workers, "workers", "w", 10, "attacks in flight at once")
	cmd.Flags().DurationVar(&opts.Timeout, "timeout", 30*time.Second, "per-request timeout")
	cmd.Flags().BoolVar(&opts.Flush, "flush", false, "flush the cache before the burst")

	return cmd
}

func run(cmd *cobra.Command, opts *Options) error {
	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	client, err := NewClient(opts.URL, opts.Timeout)
	if err != nil {
		return err
	}

	username, password := opts.Username, opts.Password
	if username == "" || password == "" {
		username, password = RandomCredentials()
		reply, err := client.Register(ctx, username, password)
		if err != nil {
			return err
		}
		printReply(out, "register", reply)
	}

	reply, err := client.Login(ctx, username, password)
	if err != nil {
		return err
	}
	printReply(out, "login", reply)

	if opts.Flush {
		reply, err := client.Flush(ctx)
		if err != nil {
			return err
		}
		printReply(out, "flush", reply)
	}

	results := Burst(ctx, client, opts.Hits, opts.Workers, func(r HitResult) {
		if r.Err != nil {
			fmt.Fprintf(out, "hit %d: error: %v\n", r.Seq, r.Err)
			return
		}
		printReply(out, fmt.Sprintf("hit %d", r.Seq), r.Reply)
	})

	failed := 0
	for _, r := range results {
		if r.Err != nil {
			failed++
		}
	}

	status, err := client.Status(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "done: %d hits, %d failed; user health %d, monster health %d\n",
		len(results), failed, status.User.Health, status.Monster.Health)
	return nil
}

func printReply(w io.Writer, label string, reply Reply) {
	data, err := json.Marshal(reply)
	if err != nil {
		fmt.Fprintf(w, "%s: %v\n", label, reply)
		return
	}
	fmt.Fprintf(w, "%s: %s\n", label, data)
}
