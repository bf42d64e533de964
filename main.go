package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/sirupsen/logrus"

	"github.com/littlecapa/finbox/internal/api"
	"github.com/littlecapa/finbox/internal/auth"
	"github.com/littlecapa/finbox/internal/config"
	"github.com/littlecapa/finbox/internal/events"
	"github.com/littlecapa/finbox/internal/llm"
	"github.com/littlecapa/finbox/internal/store"
	"github.com/littlecapa/finbox/internal/sweep"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to the config file")
	debug := flag.Bool("debug", false, "enable debug logging")
	flag.Parse()

	logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	if *debug {
		logrus.SetLevel(logrus.DebugLevel)
	}
	log := logrus.WithField("component", "main")

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.WithError(err).Fatal("could not load config")
	}

	st, err := store.Open(cfg.DBPath)
	if err != nil {
		log.WithError(err).Fatal("could not open database")
	}
	defer st.Close()

	var sink sweep.EventSink
	if cfg.NATSURL != "" {
		pub, err := events.NewPublisher(cfg.NATSURL)
		if err != nil {
			log.WithError(err).Warn("event publishing disabled, NATS unreachable")
		} else {
			defer pub.Close()
			if err := pub.EnsureStream(context.Background()); err != nil {
				log.WithError(err).Warn("event publishing disabled, stream setup failed")
			} else {
				sink = pub
			}
		}
	}

	var verifier *auth.JWTVerifier
	if cfg.JWTSecret != "" {
		verifier, err = auth.NewJWTVerifier(cfg.JWTSecret)
		if err != nil {
			log.WithError(err).Fatal("could not build JWT verifier")
		}
	} else {
		log.Warn("no jwt secret configured, mutating routes are open")
	}

	var llmSvc *llm.Service
	if cfg.OpenAI.APIKey != "" {
		llmSvc = llm.New(cfg.OpenAI.APIKey, cfg.OpenAI.Model)
	}

	server := &api.Server{
		Store:    st,
		LLM:      llmSvc,
		Config:   cfg,
		Events:   sink,
		Verifier: verifier,
	}

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	log.WithField("addr", addr).Info("starting server")
	if err := server.Router().Run(addr); err != nil {
		log.WithError(err).Error("server stopped")
		os.Exit(1)
	}
}
