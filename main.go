package main

import (
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/richarddahl/ruleflow/agent"
	"github.com/richarddahl/ruleflow/config"
	"github.com/richarddahl/ruleflow/logger"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

type cfg struct {
	config.Config
}
type cli struct {
	cfg cfg
}

func setupFlags(cmd *cobra.Command) error {
	cmd.Flags().String("config-file", "", "Path to config file.")
	cmd.Flags().String("redis-addr", "localhost:6379", "comma separated list of redis host:port")
	cmd.Flags().String("namespace", "ruleflow", "namespace used in storage")
	cmd.Flags().Int("http-port", 8080, "http port for rest endpoints")
	cmd.Flags().String("storage-impl", "redis", "implementation of underline storage")
	cmd.Flags().String("log-level", "info", "log level")
	cmd.Flags().String("event-channel", "ruleflow:events", "pub/sub channel carrying change notifications")
	cmd.Flags().Int("partitions", 4, "event pipeline partitions")
	cmd.Flags().Int("eval-concurrency", 8, "concurrent workflow evaluations per event")
	cmd.Flags().Int("action-concurrency", 8, "concurrent recipient deliveries per action")
	cmd.Flags().Duration("event-timeout", 60*time.Second, "per event processing deadline")
	cmd.Flags().Duration("query-timeout", 5*time.Second, "query condition timeout")
	cmd.Flags().Duration("webhook-timeout", 10*time.Second, "webhook delivery timeout")
	cmd.Flags().Duration("definition-cache-ttl", 30*time.Second, "active definition snapshot ttl")
	cmd.Flags().Duration("dedupe-ttl", 5*time.Minute, "duplicate event suppression window")
	cmd.Flags().String("audit-file", "", "file receiving terminal execution records as json lines, disabled when empty")
	cmd.Flags().Duration("audit-flush-interval", 5*time.Second, "audit file flush interval")
	return viper.BindPFlags(cmd.Flags())
}

func (c *cli) setupConfig(cmd *cobra.Command, args []string) error {
	var err error

	configFile, err := cmd.Flags().GetString("config-file")
	if err != nil {
		return err
	}
	viper.SetConfigFile(configFile)

	if err = viper.ReadInConfig(); err != nil {
		// it's ok if config file doesn't exist
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return err
		}
	}

	c.cfg.RedisConfig.Addrs = strings.Split(viper.GetString("redis-addr"), ",")
	c.cfg.RedisConfig.Namespace = viper.GetString("namespace")
	c.cfg.HttpPort = viper.GetInt("http-port")
	c.cfg.StorageType = config.StorageType(viper.GetString("storage-impl"))
	c.cfg.LogLevel = viper.GetString("log-level")
	c.cfg.ListenerConfig.Channel = viper.GetString("event-channel")
	c.cfg.ListenerConfig.DedupeTTL = viper.GetDuration("dedupe-ttl")
	c.cfg.EngineConfig.Partitions = viper.GetInt("partitions")
	c.cfg.EngineConfig.EvalConcurrency = viper.GetInt("eval-concurrency")
	c.cfg.EngineConfig.ActionConcurrency = viper.GetInt("action-concurrency")
	c.cfg.EngineConfig.EventTimeout = viper.GetDuration("event-timeout")
	c.cfg.EngineConfig.QueryTimeout = viper.GetDuration("query-timeout")
	c.cfg.EngineConfig.WebhookTimeout = viper.GetDuration("webhook-timeout")
	c.cfg.EngineConfig.DefinitionCacheTTL = viper.GetDuration("definition-cache-ttl")
	c.cfg.AuditConfig.FileName = viper.GetString("audit-file")
	c.cfg.AuditConfig.FlushInterval = viper.GetDuration("audit-flush-interval")
	return nil
}

func (c *cli) run(cmd *cobra.Command, args []string) error {
	if err := logger.InitLogger(c.cfg.LogLevel); err != nil {
		return err
	}
	agent, err := agent.New(c.cfg.Config, agent.Collaborators{})
	if err != nil {
		panic(err)
	}
	err = agent.Start()
	if err != nil {
		panic(err)
	}
	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)
	<-sigc
	return agent.Shutdown()
}

func main() {
	cli := &cli{}

	cmd := &cobra.Command{
		Use:     "ruleflow",
		PreRunE: cli.setupConfig,
		RunE:    cli.run,
	}

	if err := setupFlags(cmd); err != nil {
		log.Fatal(err)
	}

	if err := cmd.Execute(); err != nil {
		log.Fatal(err)
	}
}
