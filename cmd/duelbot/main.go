package main

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/palemoky/hidden-word-duel/internal/client"
	"github.com/palemoky/hidden-word-duel/internal/game/wordpool"
	"github.com/palemoky/hidden-word-duel/internal/logger"
	"github.com/palemoky/hidden-word-duel/internal/protocol"
	"github.com/palemoky/hidden-word-duel/internal/protocol/codec"
)

type botOptions struct {
	server    string
	playerID  string
	name      string
	codec     string
	wordsFile string
	games     int
	think     time.Duration
	logLevel  string
}

func main() {
	cobra.CheckErr(newBotCmd().Execute())
}

func newBotCmd() *cobra.Command {
	opts := &botOptions{}

	cmd := &cobra.Command{
		Use:   "duelbot",
		Short: "Headless player that joins quick match and guesses from a word list",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			logger.Init(opts.logLevel, true)
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return run(ctx, opts)
		},
	}

	fs := cmd.Flags()
	fs.StringVarP(&opts.server, "server", "s", "localhost:1780", "服务器地址")
	fs.StringVar(&opts.playerID, "player-id", "", "玩家 ID，默认随机生成")
	fs.StringVarP(&opts.name, "name", "n", "", "昵称，默认由服务器生成")
	fs.StringVar(&opts.codec, "codec", "json", "编码 json|protobuf")
	fs.StringVarP(&opts.wordsFile, "words-file", "w", "", "每行一个单词的词表文件，默认使用内置词库")
	fs.IntVarP(&opts.games, "games", "g", 1, "连续进行的对局数")
	fs.DurationVar(&opts.think, "think", 800*time.Millisecond, "每次猜词前的等待时间")
	fs.StringVar(&opts.logLevel, "log-level", "info", "日志级别")

	cmd.CompletionOptions.HiddenDefaultCmd = true
	cmd.SilenceUsage = true
	return cmd
}

func run(ctx context.Context, opts *botOptions) error {
	words := wordpool.DefaultWords()
	if opts.wordsFile != "" {
		data, err := os.ReadFile(opts.wordsFile)
		if err != nil {
			return err
		}
		words = wordpool.ParseList(string(data))
	}

	c := client.NewClient(serverURL(opts), codec.ForName(opts.codec))
	if err := c.Connect(ctx); err != nil {
		return fmt.Errorf("连接服务器失败: %w", err)
	}
	defer c.Close()

	waitCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if _, err := c.WaitFor(waitCtx, protocol.MsgConnected); err != nil {
		return fmt.Errorf("等待连接确认失败: %w", err)
	}
	id, name := c.Identity()
	log.Info().Str("player", id).Str("name", name).Msg("✅ 已连接")

	bot := client.NewBot(c, words, opts.think)
	for i := range opts.games {
		res, err := bot.PlayMatch(ctx)
		if err != nil {
			return err
		}

		ev := log.Info().Int("game", i+1).Str("room", res.RoomID).Interface("scores", res.Scores)
		switch {
		case res.Aborted:
			ev.Str("reason", res.Reason).Msg("⚠️ 对局中止")
		case res.WinnerID == nil:
			ev.Msg("🤝 平局")
		case *res.WinnerID == id:
			ev.Msg("🏆 获胜")
		default:
			ev.Msg("😞 落败")
		}
	}
	return nil
}

func serverURL(opts *botOptions) string {
	playerID := opts.playerID
	if playerID == "" {
		playerID = uuid.NewString()
	}

	q := url.Values{}
	q.Set("playerId", playerID)
	q.Set("codec", opts.codec)
	if opts.name != "" {
		q.Set("name", opts.name)
	}
	u := url.URL{Scheme: "ws", Host: opts.server, Path: "/ws", RawQuery: q.Encode()}
	return u.String()
}
