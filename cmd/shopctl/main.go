// Command shopctl runs operator tasks against the shop database.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/urfave/cli/v3"

	"github.com/flicky/apnishop-api/internal/config"
	"github.com/flicky/apnishop-api/internal/dto"
	"github.com/flicky/apnishop-api/internal/repository"
	"github.com/flicky/apnishop-api/internal/service"
)

func main() {
	log := slog.New(slog.NewTextHandler(os.Stderr, nil))

	cmd := &cli.Command{
		Name:  "shopctl",
		Usage: "Apni Shop operator tools",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "env-file", Value: ".env", Usage: "dotenv file loaded before the environment"},
		},
		Commands: []*cli.Command{
			{
				Name:  "migrate",
				Usage: "Apply pending database migrations",
				Action: func(ctx context.Context, c *cli.Command) error {
					cfg, err := config.Load(c.String("env-file"))
					if err != nil {
						return err
					}
					version, err := repository.Migrate(cfg.DB.DSN())
					if err != nil {
						return err
					}
					log.Info("migration complete", "version", version)
					return nil
				},
			},
			{
				Name:  "seed",
				Usage: "Create the default category tree (safe to run repeatedly)",
				Action: func(ctx context.Context, c *cli.Command) error {
					return withPool(ctx, c, func(pool *pgxpool.Pool, _ *config.Config) error {
						svc := service.NewCategoryService(repository.NewCategoryRepository(pool), repository.NewTransactor(pool), log)
						res, err := svc.Seed(ctx, service.DefaultCatalog)
						if err != nil {
							return err
						}
						log.Info("seed complete", "categories", res.CategoriesCreated, "subcategories", res.SubCategoriesCreated)
						return nil
					})
				},
			},
			{
				Name:  "create-admin",
				Usage: "Create an admin account",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "email", Required: true},
					&cli.StringFlag{Name: "password", Required: true, Sources: cli.EnvVars("ADMIN_PASSWORD")},
					&cli.StringFlag{Name: "first-name", Value: "Admin"},
					&cli.StringFlag{Name: "last-name", Value: "User"},
				},
				Action: func(ctx context.Context, c *cli.Command) error {
					if len(c.String("password")) < 8 {
						return fmt.Errorf("password must be at least 8 characters")
					}
					return withPool(ctx, c, func(pool *pgxpool.Pool, cfg *config.Config) error {
						svc := service.NewAuthService(repository.NewUserRepository(pool), cfg.JWT.Secret, cfg.JWT.Expiration)
						admin, err := svc.CreateAdmin(ctx, dto.RegisterRequest{
							Email:     c.String("email"),
							Password:  c.String("password"),
							FirstName: c.String("first-name"),
							LastName:  c.String("last-name"),
						})
						if err != nil {
							return err
						}
						log.Info("admin created", "id", admin.ID, "email", admin.Email)
						return nil
					})
				},
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		log.Error("shopctl failed", "error", err)
		os.Exit(1)
	}
}

func withPool(ctx context.Context, c *cli.Command, fn func(*pgxpool.Pool, *config.Config) error) error {
	cfg, err := config.Load(c.String("env-file"))
	if err != nil {
		return err
	}
	pool, err := repository.Connect(ctx, cfg.DB.DSN(), cfg.DB.MaxConns)
	if err != nil {
		return err
	}
	defer pool.Close()
	return fn(pool, cfg)
}
