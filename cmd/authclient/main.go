// Command authclient is a terminal front end for the platform API. It keeps
// the session in a file (or redis) between invocations.
//
//	authclient [-base-url URL] <command> [flags]
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/MrEthical07/authclient"
	"github.com/fatih/color"
	"github.com/joho/godotenv"
)

var (
	okColor   = color.New(color.FgGreen, color.Bold)
	errColor  = color.New(color.FgRed, color.Bold)
	hintColor = color.New(color.FgYellow)
)

type command struct {
	name  string
	usage string
	run   func(ctx context.Context, c *authclient.Client, args []string) error
}

var commands = []command{
	{"login", "login -email E [-password P]", runLogin},
	{"register", "register -name N -email E [-password P] [-role R]", runRegister},
	{"logout", "logout", runLogout},
	{"me", "me", runMe},
	{"status", "status", runStatus},
	{"forgot", "forgot -email E", runForgot},
	{"reset", "reset -token T [-password P]", runReset},
	{"oauth", "oauth -callback URL", runOAuth},
	{"request", "request [-method M] -path P [-data JSON]", runRequest},
}

func main() {
	_ = godotenv.Load()
	os.Exit(run(os.Args[1:], os.Stderr))
}

func run(args []string, stderr io.Writer) int {
	global := flag.NewFlagSet("authclient", flag.ContinueOnError)
	global.SetOutput(stderr)
	baseURL := global.String("base-url", "", "backend base URL (default AUTHCLIENT_BASE_URL or http://localhost:5000)")
	envPrefix := global.String("env-prefix", "AUTHCLIENT", "environment variable prefix")
	global.Usage = func() { usage(stderr) }
	if err := global.Parse(args); err != nil {
		return 2
	}
	if global.NArg() == 0 {
		usage(stderr)
		return 2
	}

	name, rest := global.Arg(0), global.Args()[1:]
	var cmd *command
	for i := range commands {
		if commands[i].name == name {
			cmd = &commands[i]
		}
	}
	if cmd == nil {
		errColor.Fprintf(stderr, "unknown command %q\n", name)
		usage(stderr)
		return 2
	}

	cfg := authclient.ConfigFromEnv(*envPrefix)
	if *baseURL != "" {
		cfg.BaseURL = *baseURL
	}
	if cfg.Session.Backend == authclient.SessionBackendFile && cfg.Session.FilePath == "" {
		cfg.Session.FilePath = authclient.DefaultSessionPath()
	}

	level, _ := authclient.ParseLogLevel(cfg.Log.Level)
	client, err := authclient.New().
		WithConfig(cfg).
		WithLogger(slogLogger(stderr, level)).
		Build()
	if err != nil {
		errColor.Fprintf(stderr, "configuration: %v\n", err)
		return 1
	}
	defer client.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := cmd.run(ctx, client, rest); err != nil {
		report(stderr, err)
		return 1
	}
	return 0
}

func usage(w io.Writer) {
	fmt.Fprintln(w, "usage: authclient [-base-url URL] <command> [flags]")
	fmt.Fprintln(w, "commands:")
	for _, c := range commands {
		fmt.Fprintf(w, "  %s\n", c.usage)
	}
}

// report prints the user-facing message of an *APIError and a hint for
// errors that need the user to sign in again.
func report(w io.Writer, err error) {
	var apiErr *authclient.APIError
	if errors.As(err, &apiErr) {
		msg := apiErr.Message
		if apiErr.Field != "" {
			msg = apiErr.Field + ": " + msg
		}
		errColor.Fprintln(w, msg)
	} else {
		errColor.Fprintln(w, err)
	}
	if authclient.IsAuthError(err) {
		hintColor.Fprintln(w, "run `authclient login` to sign in")
	}
}

// secret returns value or, when empty, the named environment variable.
func secret(value, env string) string {
	if value != "" {
		return value
	}
	return os.Getenv(env)
}

func runLogin(ctx context.Context, c *authclient.Client, args []string) error {
	fs := flag.NewFlagSet("login", flag.ContinueOnError)
	email := fs.String("email", "", "account email")
	password := fs.String("password", "", "password (or AUTHCLIENT_PASSWORD)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := c.Login(ctx, *email, secret(*password, "AUTHCLIENT_PASSWORD")); err != nil {
		return err
	}
	okColor.Println("signed in")
	return nil
}

func runRegister(ctx context.Context, c *authclient.Client, args []string) error {
	fs := flag.NewFlagSet("register", flag.ContinueOnError)
	name := fs.String("name", "", "display name")
	email := fs.String("email", "", "account email")
	password := fs.String("password", "", "password (or AUTHCLIENT_PASSWORD)")
	role := fs.String("role", "", "requested role, e.g. student or instructor")
	if err := fs.Parse(args); err != nil {
		return err
	}
	err := c.Register(ctx, authclient.RegisterRequest{
		Name:     *name,
		Email:    *email,
		Password: secret(*password, "AUTHCLIENT_PASSWORD"),
		Role:     *role,
	})
	if err != nil {
		return err
	}
	okColor.Println("account created")
	return nil
}

func runLogout(ctx context.Context, c *authclient.Client, _ []string) error {
	if err := c.Logout(ctx); err != nil {
		return err
	}
	okColor.Println("signed out")
	return nil
}

func runMe(ctx context.Context, c *authclient.Client, _ []string) error {
	p, err := c.CurrentUser(ctx)
	if err != nil {
		return err
	}
	return printJSON(p)
}

func runStatus(ctx context.Context, c *authclient.Client, _ []string) error {
	if c.IsAuthenticated(ctx) {
		okColor.Println("signed in")
		return nil
	}
	hintColor.Println("signed out")
	return nil
}

func runForgot(ctx context.Context, c *authclient.Client, args []string) error {
	fs := flag.NewFlagSet("forgot", flag.ContinueOnError)
	email := fs.String("email", "", "account email")
	if err := fs.Parse(args); err != nil {
		return err
	}
	res, err := c.RequestPasswordReset(ctx, *email)
	if err != nil {
		return err
	}
	okColor.Println(res.Message)
	return nil
}

func runReset(ctx context.Context, c *authclient.Client, args []string) error {
	fs := flag.NewFlagSet("reset", flag.ContinueOnError)
	token := fs.String("token", "", "token from the reset link")
	password := fs.String("password", "", "new password (or AUTHCLIENT_NEW_PASSWORD)")
	confirm := fs.String("confirm", "", "repeat the new password (defaults to -password)")
	email := fs.String("email", "", "send a new link to this address if the token is invalid")
	if err := fs.Parse(args); err != nil {
		return err
	}

	flow := c.NewResetPasswordFlow(*token)
	state, err := flow.Validate(ctx)
	if err != nil {
		return err
	}
	if state == authclient.ResetTokenInvalid {
		if *email == "" {
			return errors.New("reset link is invalid or expired; pass -email to request a new one")
		}
		res, err := flow.RequestNewLink(ctx, *email)
		if err != nil {
			return err
		}
		hintColor.Println(res.Message)
		return nil
	}

	pw := secret(*password, "AUTHCLIENT_NEW_PASSWORD")
	again := *confirm
	if again == "" {
		again = pw
	}
	if err := flow.Submit(ctx, pw, again); err != nil {
		return err
	}
	okColor.Println("password updated; sign in with the new password")
	return nil
}

func runOAuth(ctx context.Context, c *authclient.Client, args []string) error {
	fs := flag.NewFlagSet("oauth", flag.ContinueOnError)
	callback := fs.String("callback", "", "redirect URL received after provider sign-in")
	if err := fs.Parse(args); err != nil {
		return err
	}
	cb, err := authclient.ParseOAuthCallback(*callback)
	if err != nil {
		return err
	}
	p, err := c.HandleOAuthCallback(ctx, cb)
	if err != nil {
		return err
	}
	okColor.Printf("signed in as %s\n", p.Email)
	return nil
}

func runRequest(ctx context.Context, c *authclient.Client, args []string) error {
	fs := flag.NewFlagSet("request", flag.ContinueOnError)
	method := fs.String("method", "GET", "HTTP method")
	path := fs.String("path", "", "API path, e.g. /api/courses")
	data := fs.String("data", "", "JSON request body")
	if err := fs.Parse(args); err != nil {
		return err
	}

	var body any
	if *data != "" {
		if !json.Valid([]byte(*data)) {
			return errors.New("-data is not valid JSON")
		}
		body = json.RawMessage(*data)
	}
	resp, err := c.Request(ctx, strings.ToUpper(*method), *path, body)
	if err != nil {
		return err
	}
	_, err = os.Stdout.Write(append(resp.Body, '\n'))
	return err
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
