// Package cli implements the redchat command line: a live chat session by
// default, or one of the admin operations on a topic.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/ridge/redchat/kafka"
	"github.com/ridge/redchat/message"
	"github.com/ridge/redchat/publish"
	"github.com/ridge/redchat/run"
	"github.com/ridge/redchat/scan"
	"github.com/ridge/redchat/session"
	"github.com/ridge/redchat/tlog"
	"github.com/ridge/redchat/viewserver"
	"github.com/spf13/pflag"
	"go.uber.org/zap"
	"time"
)

// Mode is the operation selected on the command line
type Mode int

// Modes
const (
	ModeChat Mode = iota
	ModeList
	ModeUpdate
	ModeDelete
	ModeServe
)

// Config is the parsed command line
type Config struct {
	Brokers  string
	Topic    string
	Username string
	Format   message.Format
	Timeout  time.Duration

	Mode    Mode
	Offset  int64  // target of ModeUpdate and ModeDelete
	Content string // new text for ModeUpdate
	Addr    string // listening address for ModeServe
}

type flags struct {
	brokers  string
	topic    string
	username string
	format   message.Format
	timeout  uint
	list     bool
	update   int64
	content  string
	delete   int64
	serve    string
}

func newFlagSet(f *flags) *pflag.FlagSet {
	fs := pflag.NewFlagSet("redchat", pflag.ContinueOnError)
	fs.StringVarP(&f.brokers, "bootstrap-servers", "b", "localhost:9092", "Comma-separated Kafka/Redpanda brokers, or a kafka:// or file:// URI")
	fs.StringVarP(&f.topic, "topic", "t", "chat-room", "Chat topic")
	fs.StringVarP(&f.username, "username", "u", "", "Name to chat under (required for chatting and updates)")
	fs.VarP(&f.format, "format", "f", "Message format (text|json|protobuf)")
	fs.UintVar(&f.timeout, "timeout", 5, "Seconds to scan the topic for --list")
	fs.BoolVar(&f.list, "list", false, "List the messages of the topic with replacements and deletions applied")
	fs.Int64Var(&f.update, "update", 0, "Replace the text of the message at this offset with --content")
	fs.StringVar(&f.content, "content", "", "New text for --update")
	fs.Int64Var(&f.delete, "delete", 0, "Delete the message at this offset")
	fs.StringVar(&f.serve, "serve", "", "Serve views of the topic over HTTP on this address")
	return fs
}

// ParseArgs parses the command line (without the program name)
func ParseArgs(args []string) (Config, error) {
	var f flags
	fs := newFlagSet(&f)
	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}
	return configFromFlags(fs, f)
}

func configFromFlags(fs *pflag.FlagSet, f flags) (Config, error) {
	cfg := Config{
		Brokers:  f.brokers,
		Topic:    f.topic,
		Username: f.username,
		Format:   f.format,
		Timeout:  time.Duration(f.timeout) * time.Second,
		Content:  f.content,
		Addr:     f.serve,
	}

	var modes []string
	if f.list {
		cfg.Mode = ModeList
		modes = append(modes, "--list")
	}
	if fs.Changed("update") {
		cfg.Mode = ModeUpdate
		cfg.Offset = f.update
		modes = append(modes, "--update")
	}
	if fs.Changed("delete") {
		cfg.Mode = ModeDelete
		cfg.Offset = f.delete
		modes = append(modes, "--delete")
	}
	if fs.Changed("serve") {
		cfg.Mode = ModeServe
		modes = append(modes, "--serve")
	}
	if len(modes) > 1 {
		return Config{}, fmt.Errorf("%s cannot be combined with %s", modes[0], modes[1])
	}

	if err := kafka.ValidateTopicName(cfg.Topic); err != nil {
		return Config{}, err
	}
	switch cfg.Mode {
	case ModeChat:
		if cfg.Username == "" {
			return Config{}, errors.New("--username is required for chatting")
		}
	case ModeUpdate:
		if cfg.Username == "" {
			return Config{}, errors.New("--username is required for --update")
		}
		if !fs.Changed("content") {
			return Config{}, errors.New("--content is required for --update")
		}
	case ModeServe:
		if cfg.Addr == "" {
			return Config{}, errors.New("--serve requires an address")
		}
	}
	if (cfg.Mode == ModeUpdate || cfg.Mode == ModeDelete) && !cfg.Format.SupportsMutation() {
		return Config{}, fmt.Errorf("%w: use --format json or --format protobuf", message.ErrUnsupportedOperation)
	}
	return cfg, nil
}

// Main handles the command line and runs the selected operation
func Main(args []string) {
	var f flags
	fs := newFlagSet(&f)
	pflag.CommandLine.AddFlagSet(fs)
	_ = pflag.CommandLine.Parse(args[1:]) // exits on error
	cfg, err := configFromFlags(fs, f)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	client, err := kafka.FromBrokers(cfg.Brokers)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	run.Server(func(ctx context.Context) error {
		return Run(ctx, cfg, client, os.Stdin, os.Stdout)
	})
}

// Run performs the operation selected by the config
func Run(ctx context.Context, cfg Config, client kafka.Client, in io.Reader, out io.Writer) error {
	ctx = tlog.With(ctx, zap.String("topic", cfg.Topic))

	switch cfg.Mode {
	case ModeList:
		config := scan.DefaultConfig()
		config.Timeout = cfg.Timeout
		res, err := scan.Run(ctx, client, cfg.Topic, cfg.Format, config)
		if err != nil && ctx.Err() != nil {
			return err
		}
		if renderErr := scan.Render(out, res); renderErr != nil {
			return renderErr
		}
		return err
	case ModeUpdate, ModeDelete:
		return mutate(ctx, cfg, client, out)
	case ModeServe:
		l, err := viewserver.Listen(cfg.Addr)
		if err != nil {
			return fmt.Errorf("failed to listen on %s: %w", cfg.Addr, err)
		}
		config := scan.DefaultConfig()
		config.Timeout = cfg.Timeout
		return viewserver.NewServer(l, viewserver.Config{
			Client: client,
			Format: cfg.Format,
			Scan:   config,
			Live:   viewserver.DefaultLiveConfig,
		}).Run(ctx)
	default:
		return session.Run(ctx, session.Config{
			Client:   client,
			Topic:    cfg.Topic,
			Username: cfg.Username,
			Format:   cfg.Format,
			In:       in,
			Out:      out,
		})
	}
}

// ErrOffsetOutOfRange is returned when an admin operation targets an offset
// beyond the end of the topic
var ErrOffsetOutOfRange = errors.New("offset out of range")

func mutate(ctx context.Context, cfg Config, client kafka.Client, out io.Writer) error {
	last, err := client.LastOffset(ctx, cfg.Topic)
	if err != nil {
		return fmt.Errorf("failed to find the end of topic %s: %w", cfg.Topic, err)
	}
	if cfg.Offset >= last {
		return fmt.Errorf("%w: %d (topic %s ends at %d)", ErrOffsetOutOfRange, cfg.Offset, cfg.Topic, last)
	}

	pub := publish.New(client, cfg.Topic, cfg.Format)
	if cfg.Mode == ModeUpdate {
		offset, err := pub.Replace(ctx, cfg.Username, cfg.Content, cfg.Offset)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintf(out, "replaced message at offset %d (replacement at offset %d)\n", cfg.Offset, offset)
		return err
	}
	offset, err := pub.Delete(ctx, cfg.Offset)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(out, "deleted message at offset %d (deletion at offset %d)\n", cfg.Offset, offset)
	return err
}
