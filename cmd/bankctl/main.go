package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/gokatarajesh/dmv-trainer/internal/config"
	"github.com/gokatarajesh/dmv-trainer/internal/db/repository"
	sqlcgen "github.com/gokatarajesh/dmv-trainer/internal/db/sqlc"
	"github.com/gokatarajesh/dmv-trainer/internal/question"
)

const usage = `usage: bankctl <command> [flags]

commands:
  validate -file PATH   check a question bank file and print its counts
  import   -file PATH   validate the file and upsert it into Postgres
  stats                 print counts of the bank currently served
`

func main() {
	log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen}).With().Timestamp().Logger()

	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	if os.Getenv("APP_ENV") != "production" {
		_ = godotenv.Load("configs/.env")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	var err error
	switch os.Args[1] {
	case "validate":
		err = runValidate(os.Args[2:])
	case "import":
		err = runImport(ctx, os.Args[2:])
	case "stats":
		err = runStats(ctx)
	default:
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}
	if err != nil {
		var verr *question.ValidationError
		if errors.As(err, &verr) {
			for _, p := range verr.Problems {
				log.Error().Msg(p)
			}
		}
		log.Fatal().Err(err).Str("command", os.Args[1]).Msg("bankctl failed")
	}
}

func runValidate(args []string) error {
	fs := flag.NewFlagSet("validate", flag.ExitOnError)
	file := fs.String("file", "data/question_bank.json", "Question bank JSON file")
	_ = fs.Parse(args)

	qs, err := question.LoadFile(*file)
	if err != nil {
		return err
	}
	if err := question.Validate(qs); err != nil {
		return err
	}
	log.Info().Str("file", *file).Int("questions", len(qs)).Msg("question bank is valid")
	return printStats(question.Summarize(qs))
}

func runImport(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("import", flag.ExitOnError)
	file := fs.String("file", "data/question_bank.json", "Question bank JSON file")
	_ = fs.Parse(args)

	qs, err := question.LoadFile(*file)
	if err != nil {
		return err
	}

	svc, closeFn, err := openService(ctx)
	if err != nil {
		return err
	}
	defer closeFn()

	if err := svc.Import(ctx, qs); err != nil {
		return err
	}
	log.Info().Str("file", *file).Int("questions", len(qs)).Msg("question bank imported")
	return nil
}

func runStats(ctx context.Context) error {
	svc, closeFn, err := openService(ctx)
	if err != nil {
		return err
	}
	defer closeFn()

	stats, err := svc.Stats(ctx)
	if err != nil {
		return err
	}
	return printStats(stats)
}

// openService connects to Postgres and, when REDIS_ADDR is set, to the bank
// cache so an import invalidates what the API is serving.
func openService(ctx context.Context) (*question.Service, func(), error) {
	pg, err := config.LoadPostgres()
	if err != nil {
		return nil, nil, err
	}
	pool, err := pgxpool.New(ctx, pg.DSN())
	if err != nil {
		return nil, nil, fmt.Errorf("connect postgres: %w", err)
	}
	queries := sqlcgen.New(pool)
	repo := repository.NewQuestionRepository(queries, repository.PgxTx(pool, queries))

	var cache question.BankCache
	var redisClient *redis.Client
	if addr := os.Getenv("REDIS_ADDR"); addr != "" {
		redisClient = redis.NewClient(&redis.Options{Addr: addr})
		cache = question.NewCache(redisClient, 0)
	}

	svc := question.NewService(repo, cache, question.ServiceOptions{}, log.Logger)
	closeFn := func() {
		pool.Close()
		if redisClient != nil {
			_ = redisClient.Close()
		}
	}
	return svc, closeFn, nil
}

func printStats(stats question.Stats) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(stats)
}
