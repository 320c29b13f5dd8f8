package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/smokyabdulrahman/prayer-countdown/internal/config"
	"github.com/smokyabdulrahman/prayer-countdown/internal/countdown"
	"github.com/smokyabdulrahman/prayer-countdown/internal/logging"
	"github.com/smokyabdulrahman/prayer-countdown/internal/notify"
	"github.com/smokyabdulrahman/prayer-countdown/internal/prayer"
)

var (
	flagWatchFormat   string
	flagMQTTBroker    string
	flagMQTTTopic     string
	flagTelegramToken string
	flagTelegramChat  int64
)

func newWatchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Show a live countdown to the next prayer",
		Long: "Rewrite a single line once per second with the next prayer and its countdown until interrupted.\n" +
			"Optionally publish every change to an MQTT topic and announce each prayer to a Telegram chat.",
		Args: cobra.NoArgs,
		RunE: runWatch,
	}

	f := cmd.Flags()
	f.StringVar(&flagWatchFormat, "format", prayer.FormatFull, "Display format (see 'next --format')")
	f.StringVar(&flagMQTTBroker, "mqtt-broker", "", "MQTT broker URL, e.g. tcp://localhost:1883")
	f.StringVar(&flagMQTTTopic, "mqtt-topic", "", "MQTT topic for the retained countdown")
	f.StringVar(&flagTelegramToken, "telegram-token", "", "Telegram bot token")
	f.Int64Var(&flagTelegramChat, "telegram-chat", 0, "Telegram chat ID to announce prayers to")

	return cmd
}

// applyWatchFlags lays the watch-only flags over cfg.
func applyWatchFlags(cmd *cobra.Command, cfg *config.Config) {
	f := cmd.Flags()
	if f.Changed("mqtt-broker") {
		cfg.MQTTBroker = flagMQTTBroker
	}
	if f.Changed("mqtt-topic") {
		cfg.MQTTTopic = flagMQTTTopic
	}
	if f.Changed("telegram-token") {
		cfg.TelegramToken = flagTelegramToken
	}
	if f.Changed("telegram-chat") {
		cfg.TelegramChatID = flagTelegramChat
	}
}

// watchSinks builds the optional sinks configured in cfg. The returned
// cleanup disconnects whatever was connected.
func watchSinks(cfg *config.Config) ([]countdown.Sink, func(), error) {
	var (
		sinks   []countdown.Sink
		cleanup = func() {}
	)

	if cfg.MQTTBroker != "" {
		clientID := "prayer-countdown-" + uuid.NewString()[:8]
		client, err := notify.DialMQTT(cfg.MQTTBroker, clientID, logging.Component("mqtt"))
		if err != nil {
			return nil, cleanup, err
		}
		cleanup = func() { client.Disconnect(250) }
		sinks = append(sinks, notify.NewMQTT(client, cfg.MQTTTopic))
	}

	if cfg.TelegramToken != "" {
		if cfg.TelegramChatID == 0 {
			cleanup()
			return nil, func() {}, fmt.Errorf("telegram_chat_id is required when a telegram token is set")
		}
		bot, err := notify.NewBot(cfg.TelegramToken)
		if err != nil {
			cleanup()
			return nil, func() {}, err
		}
		sinks = append(sinks, notify.NewTelegram(bot, cfg.TelegramChatID))
	}

	return sinks, cleanup, nil
}

func runWatch(cmd *cobra.Command, args []string) error {
	cfg := effectiveConfig(cmd)
	applyWatchFlags(cmd, cfg)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	s, err := openSession(ctx, cfg)
	if err != nil {
		return err
	}
	defer s.Close()

	extra, cleanup, err := watchSinks(cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	term := notify.NewTerminal(cmd.OutOrStdout(), flagWatchFormat, timeLayout(cfg.TimeFormat))
	defer term.Close()

	d := countdown.New(s.calendar,
		countdown.WithClock(clock),
		countdown.WithSinks(append([]countdown.Sink{term}, extra...)...),
		countdown.WithLogger(logging.Component("countdown")),
	)
	return watch(ctx, d)
}

// watch runs d until ctx is done.
func watch(ctx context.Context, d *countdown.Driver) error {
	if err := d.Start(ctx); err != nil {
		return err
	}
	<-ctx.Done()
	d.Stop()
	return nil
}
