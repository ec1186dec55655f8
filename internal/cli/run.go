package cli

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/harun/seriallog/internal/config"
	"github.com/harun/seriallog/internal/daemon"
	"github.com/harun/seriallog/internal/logger"
	"github.com/harun/seriallog/pkg/linebuf"
	"github.com/harun/seriallog/pkg/mirror"
	"github.com/harun/seriallog/pkg/serialport"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Capture lines from a serial port",
	Long: `Open the serial port and capture lines until interrupted.

Lines between the begin and end sentinels are written to
<out>/<YYYY_MM_DD>/<HH_MM_SS>.csv. Every line, sentinels included, is
echoed to stdout and mirrored to the websocket subscriber when one is
reachable.`,
	Example: `  seriallog run -p /dev/ttyUSB0 -b 115200 -o ./captures --begin START --end STOP`,
	Args:    cobra.NoArgs,
	RunE:    runCapture,
}

func init() {
	addRunFlags(runCmd.Flags())
	rootCmd.AddCommand(runCmd)
}

// addRunFlags defines the capture flags. Their values reach the config
// through the loader, which only honours flags that were set explicitly.
func addRunFlags(fs *pflag.FlagSet) {
	defaults := config.DefaultConfig()

	fs.StringP("port", "p", "", "serial port name, e.g. /dev/ttyUSB0 or COM3")
	fs.IntP("baud", "b", 0, "baud rate")
	fs.Duration("read-timeout", serialport.DefaultReadTimeout, "serial read timeout")
	fs.StringP("out", "o", "", "root directory for capture files")
	fs.String("begin", "", "line that starts a capture file")
	fs.String("end", "", "line that closes the capture file")
	fs.String("mirror-url", mirror.DefaultURL, "websocket subscriber that receives every line")
	fs.Duration("handshake-timeout", mirror.DefaultHandshakeTimeout, "websocket handshake timeout")
	fs.Bool("no-mirror", false, "do not connect to the websocket subscriber")
	fs.String("metrics-addr", "", "serve /metrics and /healthz on this address")
	fs.Bool("echo", defaults.Echo, "echo every line to stdout")
	fs.String("log-file", "", "also write logs to this file")
	fs.Int("buffer-size", linebuf.DefaultBufferSize, "maximum bytes per serial read")
}

func runCapture(cmd *cobra.Command, args []string) error {
	cfg, err := loadRunConfig(cmd.Flags())
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	log, err := logger.New(logger.Config{
		Level:    cfg.Logging.Level,
		File:     cfg.Logging.File,
		Console:  true,
		Pretty:   cfg.Logging.Pretty,
		Out:      cmd.ErrOrStderr(),
		MaxSize:  cfg.Logging.MaxSize,
		MaxAge:   cfg.Logging.MaxAge,
		Compress: cfg.Logging.Compress,
	})
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer log.Close()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var opts []daemon.Option
	if cfg.Echo {
		opts = append(opts, daemon.WithEcho(cmd.OutOrStdout()))
	}

	d, err := daemon.New(ctx, cfg, log, opts...)
	if err != nil {
		return err
	}

	start := time.Now()
	if err := d.Run(ctx); err != nil {
		return err
	}
	log.Debug().Dur("elapsed", time.Since(start)).Msg("Exiting")

	return nil
}

// loadRunConfig merges the config file, environment and flags
func loadRunConfig(flags *pflag.FlagSet) (*config.Config, error) {
	cfg, err := config.NewLoader(cfgFile).WithFlags(flags).Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	if noMirror, err := flags.GetBool("no-mirror"); err == nil && noMirror {
		cfg.Mirror.Enabled = false
	}

	return cfg, nil
}
