package main

import (
	"bufio"
	"context"
	"fmt"
	"net/http"
	"os"
	"strings"

	"github.com/common-nighthawk/go-figure"
	"github.com/rs/zerolog"
	"github.com/spf13/pflag"

	"github.com/jrsteele09/go-todo-client/api"
	"github.com/jrsteele09/go-todo-client/federated"
	"github.com/jrsteele09/go-todo-client/internal/config"
	"github.com/jrsteele09/go-todo-client/session"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	cfg := config.New()
	logger := newLogger(cfg)

	client, err := api.NewClient(api.ClientConfig{
		BaseURL:           cfg.GetAPIBaseURL(),
		HTTPClient:        &http.Client{Timeout: cfg.GetRequestTimeout()},
		Logger:            logger,
		RequestsPerSecond: cfg.GetRequestsPerSecond(),
	})
	if err != nil {
		return err
	}

	store := session.NewFileStore(cfg.GetStorageDir())
	manager, err := session.NewManager(client, store, session.WithLogger(logger))
	if err != nil {
		return err
	}

	if len(args) == 0 || args[0] == "help" {
		displayAppName(cfg.GetAppName())
		usage()
		return nil
	}

	ctx := context.Background()
	switch args[0] {
	case "login":
		return cmdLogin(ctx, cfg, manager, args[1:])
	case "register":
		return cmdRegister(ctx, manager, args[1:])
	case "logout":
		if err := manager.Logout(ctx); err != nil {
			return err
		}
		fmt.Println("Signed out.")
		return nil
	case "whoami":
		return cmdWhoami(manager)
	case "refresh":
		return manager.RefreshAccessToken(ctx)
	case "passwd":
		return cmdPasswd(ctx, manager, args[1:])
	case "push-token":
		return cmdPushToken(ctx, manager, args[1:])
	case "tasks":
		return cmdTasks(ctx, manager, logger, args[1:])
	default:
		usage()
		return fmt.Errorf("unknown command %q", args[0])
	}
}

func cmdLogin(ctx context.Context, cfg config.Config, manager *session.Manager, args []string) error {
	flags := pflag.NewFlagSet("login", pflag.ContinueOnError)
	email := flags.String("email", "", "account email")
	password := flags.String("password", "", "account password")
	google := flags.Bool("google", false, "sign in with Google")
	if err := flags.Parse(args); err != nil {
		return err
	}

	if *google {
		return loginWithGoogle(ctx, cfg, manager)
	}

	if err := manager.Login(ctx, *email, *password); err != nil {
		return err
	}
	fmt.Printf("Signed in as %s\n", *email)
	return nil
}

func loginWithGoogle(ctx context.Context, cfg config.Config, manager *session.Manager) error {
	provider, err := federated.NewGoogleProvider(ctx, cfg.GetGoogleClientID(), cfg.GetGoogleClientSecret(), cfg.GetGoogleRedirectURL())
	if err != nil {
		return err
	}

	fmt.Println("Visit the following URL to authorize:")
	fmt.Println("  " + provider.AuthURL("todo-cli"))
	code, err := prompt("Paste the authorization code: ")
	if err != nil {
		return err
	}

	idToken, err := provider.IDTokenFromCode(ctx, code)
	if err != nil {
		return err
	}
	if err := manager.LoginWithGoogle(ctx, idToken); err != nil {
		return err
	}

	snapshot := manager.Snapshot()
	if snapshot.User != nil {
		fmt.Printf("Signed in as %s\n", snapshot.User.Email)
	}
	return nil
}

func cmdRegister(ctx context.Context, manager *session.Manager, args []string) error {
	flags := pflag.NewFlagSet("register", pflag.ContinueOnError)
	email := flags.String("email", "", "account email")
	password := flags.String("password", "", "account password")
	firstname := flags.String("firstname", "", "first name")
	lastname := flags.String("lastname", "", "last name")
	username := flags.String("username", "", "display name")
	if err := flags.Parse(args); err != nil {
		return err
	}

	params := session.RegisterParams{
		Email:     *email,
		Password:  *password,
		Firstname: *firstname,
		Lastname:  *lastname,
		Username:  *username,
	}
	if err := manager.Register(ctx, params); err != nil {
		return err
	}
	fmt.Printf("Registered and signed in as %s\n", *email)
	return nil
}

func cmdWhoami(manager *session.Manager) error {
	snapshot := manager.Snapshot()
	if !snapshot.IsAuthenticated {
		fmt.Println("Not signed in.")
		return nil
	}
	if user := snapshot.User; user != nil {
		fmt.Printf("%s (%s)\n", user.Email, user.ID)
	}
	return nil
}

func cmdPasswd(ctx context.Context, manager *session.Manager, args []string) error {
	flags := pflag.NewFlagSet("passwd", pflag.ContinueOnError)
	oldPassword := flags.String("old", "", "current password")
	newPassword := flags.String("new", "", "new password")
	if err := flags.Parse(args); err != nil {
		return err
	}
	if err := manager.ChangePassword(ctx, *oldPassword, *newPassword); err != nil {
		return err
	}
	fmt.Println("Password changed.")
	return nil
}

func cmdPushToken(ctx context.Context, manager *session.Manager, args []string) error {
	flags := pflag.NewFlagSet("push-token", pflag.ContinueOnError)
	token := flags.String("token", "", "push-notification registration token")
	if err := flags.Parse(args); err != nil {
		return err
	}
	if err := manager.UpdatePushToken(ctx, *token); err != nil {
		return err
	}
	fmt.Println("Push token registered.")
	return nil
}

func newLogger(cfg config.Config) zerolog.Logger {
	level := zerolog.WarnLevel
	if cfg.GetEnv() == "DEV" {
		level = zerolog.DebugLevel
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).Level(level).With().Timestamp().Logger()
}

func prompt(label string) (string, error) {
	fmt.Print(label)
	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

func displayAppName(appname string) {
	myFigure := figure.NewFigure(appname, "cybermedium", true)
	myFigure.Print()
	fmt.Println()
}

func usage() {
	fmt.Println(`Usage: todo <command> [flags]

Commands:
  login       --email --password | --google
  register    --email --password [--firstname --lastname --username]
  logout
  whoami
  refresh
  passwd      --old --new
  push-token  --token
  tasks       list | add | done | rm [flags]`)
}
