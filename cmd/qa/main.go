package main

import (
	"context"

	"github.com/airenas/go-app/pkg/goapp"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/gommon/color"
	pgxvector "github.com/pgvector/pgvector-go/pgx"
	"github.com/protokolas/protokolas/internal/pkg/analyzer"
	"github.com/protokolas/protokolas/internal/pkg/embedder"
	"github.com/protokolas/protokolas/internal/pkg/postgres"
	"github.com/protokolas/protokolas/internal/pkg/qa"
)

func main() {
	goapp.StartWithDefault()

	printBanner()

	cfg := goapp.Config
	data := &qa.Data{}
	data.Port = cfg.GetInt("port")
	data.TopK = cfg.GetInt("qa.topK")
	if data.TopK <= 0 {
		data.TopK = 3
	}
	var err error

	ctx := context.Background()

	dbConfig, err := pgxpool.ParseConfig(cfg.GetString("db.url"))
	if err != nil {
		goapp.Log.Fatal().Err(err).Msg("can't init db pool")
	}
	dbConfig.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		return pgxvector.RegisterTypes(ctx, conn)
	}

	dbPool, err := pgxpool.NewWithConfig(ctx, dbConfig)
	if err != nil {
		goapp.Log.Fatal().Err(err).Msg("can't init db pool")
	}
	defer dbPool.Close()

	db, err := postgres.NewDB(dbPool)
	if err != nil {
		goapp.Log.Fatal().Err(err).Msg("can't init db")
	}

	data.DB = db

	data.Index, err = postgres.NewVectorStore(dbPool)
	if err != nil {
		goapp.Log.Fatal().Err(err).Msg("can't init vector store")
	}

	data.Embedder, err = embedder.NewClient(cfg.GetString("embedder.url"),
		cfg.GetString("embedder.key"), cfg.GetString("embedder.model"), cfg.GetInt("embedder.dim"))
	if err != nil {
		goapp.Log.Fatal().Err(err).Msg("can't init embedder")
	}

	data.Chat, err = analyzer.NewClient(cfg.GetString("analyzer.url"),
		cfg.GetString("analyzer.key"), cfg.GetString("analyzer.model"))
	if err != nil {
		goapp.Log.Fatal().Err(err).Msg("can't init chat client")
	}

	err = qa.StartWebServer(data)
	if err != nil {
		goapp.Log.Fatal().Err(err).Msg("can't start web server")
	}
}

var (
	version = "DEV"
)

func printBanner() {
	banner := `
                      __
    ____  _________  / /_____
   / __ \/ ___/ __ \/ __/ __ \
  / /_/ / /  / /_/ / /_/ /_/ /
 / .___/_/   \____/\__/\____/
/_/
   ____ _____ _
  / __ ` + "`" + `/ __ ` + "`" + `/
 / /_/ / /_/ /
 \__, /\__,_/   v: %s
   /_/

%s
________________________________________________________

`
	cl := color.New()
	cl.Printf(banner, cl.Red(version), cl.Green("https://github.com/protokolas/protokolas"))
}
