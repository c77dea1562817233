package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fatih/color"
	pkg "github.com/reflectus-app/reflectus/pkg/internal"
	"github.com/reflectus-app/reflectus/pkg/internal/cache"
	"github.com/reflectus-app/reflectus/pkg/internal/database"
	"github.com/reflectus-app/reflectus/pkg/internal/http"
	"github.com/reflectus-app/reflectus/pkg/internal/services"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

func init() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stdout})
}

func main() {
	// Booting screen
	fmt.Println(color.CyanString(" ____       __ _           _\n|  _ \\ ___ / _| | ___  ___| |_ _   _ ___\n| |_) / _ \\ |_| |/ _ \\/ __| __| | | / __|\n|  _ <  __/  _| |  __/ (__| |_| |_| \\__ \\\n|_| \\_\\___|_| |_|\\___|\\___|\\__|\\__,_|___/"))
	fmt.Printf("%s v%s\n", color.New(color.FgHiCyan).Add(color.Bold).Sprintf("Reflectus"), pkg.AppVersion)
	fmt.Printf("The group reflection and survey platform\n")
	color.HiBlack("=====================================================\n")

	// Configure settings
	viper.AddConfigPath(".")
	viper.AddConfigPath("..")
	viper.SetConfigName("settings")
	viper.SetConfigType("toml")

	viper.SetDefault("bind", "0.0.0.0:8443")
	viper.SetDefault("pie.sum_tolerance", 0.5)
	viper.SetDefault("analytics.min_anonymous_cohort", 5)
	viper.SetDefault("analytics.snapshot_retention", 90*24*time.Hour)
	viper.SetDefault("ratelimit.submissions_per_minute", 10)

	// Load settings
	if err := viper.ReadInConfig(); err != nil {
		log.Panic().Err(err).Msg("An error occurred when loading settings.")
	}

	// Prepare in-process cache
	if err := cache.NewStore(); err != nil {
		log.Fatal().Err(err).Msg("An error occurred when setting up cache.")
	}

	// Connect to database
	if err := database.NewGorm(); err != nil {
		log.Fatal().Err(err).Msg("An error occurred when connect to database.")
	} else if err := database.RunMigration(database.C); err != nil {
		log.Fatal().Err(err).Msg("An error occurred when running database auto migration.")
	}

	// The submission rate limiter lives for the whole process
	services.Limiter = services.NewRateLimiter()

	// Configure timed tasks
	quartz := cron.New(cron.WithLogger(cron.VerbosePrintfLogger(&log.Logger)))
	quartz.AddFunc("@every 60m", services.DoAutoDatabaseCleanup)
	quartz.AddFunc("@every 5m", services.AutoCloseActivities)
	quartz.AddFunc("@every 10m", func() {
		services.Limiter.Sweep(time.Minute)
	})
	quartz.Start()

	// Server
	go http.NewServer().Listen()

	// Messages
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	quartz.Stop()
}
