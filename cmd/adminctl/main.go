package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	config "github.com/avvvet/arenax-services/configs"
	"github.com/avvvet/arenax-services/internal/arenasvc/handlers"
	"github.com/avvvet/arenax-services/internal/arenasvc/service"
	"github.com/avvvet/arenax-services/internal/arenasvc/store"
	"github.com/avvvet/arenax-services/internal/db"
	log "github.com/sirupsen/logrus"
)

const usage = `usage: adminctl <task> [flags]

tasks:
  create-admin -email E -password P [-name N]   create an admin account
  token -email E -password P                    log in and print a token
  seed                                          insert the default game catalogue
  secret                                        print a random JWT secret`

func main() {
	log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	config.LoadEnv("adminctl")

	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, usage)
		os.Exit(2)
	}

	task, args := os.Args[1], os.Args[2:]
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	var err error
	switch task {
	case "create-admin":
		err = createAdmin(ctx, args)
	case "token":
		err = token(ctx, args)
	case "seed":
		err = seed(ctx)
	case "secret":
		err = secret()
	default:
		fmt.Fprintln(os.Stderr, usage)
		os.Exit(2)
	}

	if err != nil {
		log.Fatalf("%s: %v", task, err)
	}
}

func credentialFlags(name string, args []string) (service.Credentials, error) {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	email := fs.String("email", "", "admin email")
	password := fs.String("password", "", "admin password")
	adminName := fs.String("name", "", "display name")
	if err := fs.Parse(args); err != nil {
		return service.Credentials{}, err
	}
	if *email == "" || *password == "" {
		return service.Credentials{}, errors.New("-email and -password are required")
	}
	return service.Credentials{Email: *email, Password: *password, Name: *adminName}, nil
}

func authService(ctx context.Context) (*service.AuthService, func(), error) {
	uri := os.Getenv("MONGODB_URI")
	if uri == "" {
		return nil, nil, errors.New("MONGODB_URI is required")
	}
	secret := os.Getenv("JWT_SECRET_KEY")
	if secret == "" {
		return nil, nil, errors.New("JWT_SECRET_KEY is required")
	}

	database, err := db.ConnectToDB(ctx, uri)
	if err != nil {
		return nil, nil, err
	}
	if err := db.EnsureIndexes(ctx, database); err != nil {
		db.Disconnect(database)
		return nil, nil, err
	}

	auth := service.NewAuthService(store.NewAdminStore(database), handlers.InitAuth(secret))
	return auth, func() { db.Disconnect(database) }, nil
}

func createAdmin(ctx context.Context, args []string) error {
	c, err := credentialFlags("create-admin", args)
	if err != nil {
		return err
	}

	auth, closeDB, err := authService(ctx)
	if err != nil {
		return err
	}
	defer closeDB()

	// the operator has direct store access, so the open-registration rule does not apply
	session, err := auth.Register(ctx, c, true)
	if err != nil {
		return err
	}

	log.Infof("admin %s created", session.Admin.Email)
	return nil
}

func token(ctx context.Context, args []string) error {
	c, err := credentialFlags("token", args)
	if err != nil {
		return err
	}

	auth, closeDB, err := authService(ctx)
	if err != nil {
		return err
	}
	defer closeDB()

	session, err := auth.Login(ctx, c)
	if err != nil {
		return err
	}

	fmt.Println(session.Token)
	return nil
}

func seed(ctx context.Context) error {
	uri := os.Getenv("MONGODB_URI")
	if uri == "" {
		return errors.New("MONGODB_URI is required")
	}

	database, err := db.ConnectToDB(ctx, uri)
	if err != nil {
		return err
	}
	defer db.Disconnect(database)

	if err := db.EnsureIndexes(ctx, database); err != nil {
		return err
	}

	// no notifier: running services refresh dashboards on their next change
	report, err := service.NewCatalogService(store.NewGameStore(database), nil).Seed(ctx)
	if err != nil {
		return err
	}
	log.Infof("seed done: created %v, skipped %v, backfilled %v, failed %v",
		report.Created, report.Skipped, report.Backfilled, report.Failed)
	return nil
}

func secret() error {
	buf := make([]byte, 64)
	if _, err := rand.Read(buf); err != nil {
		return err
	}
	fmt.Println(hex.EncodeToString(buf))
	return nil
}
