package main

import (
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/inconshreveable/log15"
	"github.com/joho/godotenv"
	"github.com/streadway/amqp"

	"seqlib/client"
	"seqlib/config"
	"seqlib/server"
	"seqlib/snapshot"
)

func main() {
	configFilePathFlag := flag.String("config", "./config.yaml", "Path to config file")
	envFilePathFlag := flag.String("env", ".env", "Optional dotenv file loaded before the config")
	flag.Parse()

	logger := log15.New("service", "seqlib")

	// A missing .env is fine; the environment may already be populated.
	if err := godotenv.Load(*envFilePathFlag); err != nil && !os.IsNotExist(err) {
		panic(err)
	}

	cfg, err := config.LoadConfig(*configFilePathFlag)
	if err != nil {
		panic(err)
	}

	conn, err := amqp.Dial(cfg.AmqpUrl)
	if err != nil {
		panic(err)
	}
	defer conn.Close()

	ch, err := conn.Channel()
	if err != nil {
		panic(err)
	}

	var snapshots server.Snapshotter
	if cfg.S3.Bucket != "" {
		s3Client, err := snapshot.NewS3Client(cfg.S3)
		if err != nil {
			panic(err)
		}
		snapshots = snapshot.NewExporter(s3Client, cfg.S3.Bucket, cfg.S3.Prefix, logger)
	}

	serverR, err := server.NewServer(cfg, ch, snapshots)
	if err != nil {
		panic(err)
	}

	go func() {
		if err := serverR.StartServer(); err != nil {
			logger.Crit("Server stopped", "error", err)
		}
	}()

	dial := func() (client.Publisher, error) {
		return conn.Channel()
	}
	clientsManager, err := client.NewClientsManager(cfg, dial, logger)
	if err != nil {
		panic(err)
	}

	go func() {
		if err := clientsManager.ListenClientActions(); err != nil {
			logger.Error("Client input failed", "error", err)
		}
	}()

	signalCh := make(chan os.Signal, 1)
	signal.Notify(signalCh, syscall.SIGINT, syscall.SIGTERM)
	<-signalCh

	clientsManager.Cancel()
	if err := serverR.Close(); err != nil {
		logger.Warn("Shutdown", "error", err)
	}
}
