package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/palemoky/hidden-word-duel/internal/config"
	"github.com/palemoky/hidden-word-duel/internal/game/wordpool"
	"github.com/palemoky/hidden-word-duel/internal/logger"
	"github.com/palemoky/hidden-word-duel/internal/server"
	"github.com/palemoky/hidden-word-duel/internal/server/storage"
)

type options struct {
	configPath string
	envFile    string
	logLevel   string
	pretty     bool
}

func newRootCmd() *cobra.Command {
	opts := &options{}
	var cfg *config.Config

	cmd := &cobra.Command{
		Use:   "hidden-word-duel",
		Short: "Two-player real-time word guessing duel server",
		Args:  cobra.NoArgs,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			var err error
			cfg, err = opts.load(cmd.Flags())
			return err
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return serve(cmd.Context(), cfg)
		},
	}

	pfs := cmd.PersistentFlags()
	pfs.SetNormalizeFunc(func(_ *pflag.FlagSet, name string) pflag.NormalizedName {
		return pflag.NormalizedName(strings.ReplaceAll(name, "_", "-"))
	})
	pfs.StringVarP(&opts.configPath, "config", "c", "configs/config.yaml", "配置文件路径 (env: HWD_CONFIG)")
	pfs.StringVar(&opts.envFile, "env-file", ".env", "启动前加载的 .env 文件")
	pfs.StringVar(&opts.logLevel, "log-level", "info", "日志级别 debug|info|warn|error (env: HWD_LOG_LEVEL)")
	pfs.BoolVar(&opts.pretty, "pretty", false, "输出易读的控制台日志 (env: HWD_PRETTY)")

	cmd.AddCommand(newMigrateCmd(&cfg), newSeedWordsCmd(&cfg))

	cmd.CompletionOptions.HiddenDefaultCmd = true
	cmd.SilenceErrors = true
	cmd.SilenceUsage = true
	return cmd
}

// load 依次应用 .env、HWD_ 环境变量形式的参数、配置文件与配置项环境变量覆盖
func (o *options) load(flags *pflag.FlagSet) (*config.Config, error) {
	if err := godotenv.Load(o.envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("加载 %s 失败: %w", o.envFile, err)
	}
	bindEnv(flags)

	logger.Init(o.logLevel, o.pretty)

	cfg, err := config.Load(o.configPath)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("加载配置文件失败: %w", err)
		}
		log.Warn().Str("path", o.configPath).Msg("⚙️ 配置文件不存在，使用默认配置")
		cfg = config.Default()
	}
	cfg.ApplyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("配置无效: %w", err)
	}
	return cfg, nil
}

// bindEnv 未在命令行显式传入的参数读取 HWD_ 环境变量，例如 HWD_LOG_LEVEL
func bindEnv(flags *pflag.FlagSet) {
	v := viper.New()
	v.SetEnvPrefix(config.EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	flags.VisitAll(func(f *pflag.Flag) {
		_ = v.BindEnv(f.Name)
		if !f.Changed && v.IsSet(f.Name) {
			_ = flags.Set(f.Name, fmt.Sprintf("%v", v.Get(f.Name)))
		}
	})
}

func serve(ctx context.Context, cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	srv, err := server.NewServer(ctx, cfg)
	if err != nil {
		return fmt.Errorf("创建服务器失败: %w", err)
	}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start() }()

	log.Info().Msg("🎮 猜词对战服务器启动中...")
	select {
	case err := <-errCh:
		srv.Shutdown()
		return err
	case <-ctx.Done():
		log.Info().Msg("正在关闭服务器...")
		srv.GracefulShutdown(cfg.Server.ShutdownTimeoutDuration())
		return nil
	}
}

func requireDSN(cfg *config.Config) error {
	if cfg.Postgres.DSN == "" {
		return errors.New("postgres.dsn 未配置 (env: HWD_POSTGRES_DSN)")
	}
	return nil
}

func newMigrateCmd(cfg **config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending PostgreSQL migrations",
		Args:  cobra.NoArgs,
		RunE: func(*cobra.Command, []string) error {
			if err := requireDSN(*cfg); err != nil {
				return err
			}
			return storage.Migrate((*cfg).Postgres.DSN)
		},
	}
}

func newSeedWordsCmd(cfg **config.Config) *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "seed-words",
		Short: "Insert the built-in vocabulary (or a word list file) into PostgreSQL",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := requireDSN(*cfg); err != nil {
				return err
			}

			words := wordpool.DefaultWords()
			if file != "" {
				data, err := os.ReadFile(file)
				if err != nil {
					return err
				}
				words = wordpool.ParseList(string(data))
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), time.Minute)
			defer cancel()

			pg, err := storage.NewPostgresStore(ctx, (*cfg).Postgres.DSN, (*cfg).Postgres.MaxConns)
			if err != nil {
				return err
			}
			defer pg.Close()

			n, err := pg.SeedWords(ctx, words)
			if err != nil {
				return err
			}
			log.Info().Int("inserted", n).Int("total", len(words)).Msg("📚 词库已写入")
			return nil
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "每行一个单词的词表文件")
	return cmd
}
