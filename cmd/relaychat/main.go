// Command relaychat is a terminal client for a raffle's anonymous chat.
//
//	relaychat -base http://localhost:8080/api -raffle <id> -token <jwt> -role santa
//
// Each stdin line is sent in the chosen role; messages from both
// conversations are printed once, in order.
package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/google/uuid"
	"github.com/joho/godotenv"

	"github.com/yungbote/secretsanta-backend/internal/platform/logger"
	"github.com/yungbote/secretsanta-backend/internal/relayclient"
)

func main() {
	_ = godotenv.Load()

	base := flag.String("base", envOr("SANTA_BASE_URL", "http://localhost:8080/api"), "API root URL")
	raffle := flag.String("raffle", os.Getenv("SANTA_RAFFLE_ID"), "raffle id")
	token := flag.String("token", os.Getenv("SANTA_TOKEN"), "bearer credential")
	role := flag.String("role", relayclient.RoleSanta, "role to send as: santa (to your giftee) or giftee (to your santa)")
	verbose := flag.Bool("v", false, "log connection details")
	flag.Parse()

	if err := run(*base, *raffle, *token, *role, *verbose); err != nil {
		fmt.Fprintln(os.Stderr, "relaychat:", err)
		os.Exit(1)
	}
}

func envOr(name, def string) string {
	if v := strings.TrimSpace(os.Getenv(name)); v != "" {
		return v
	}
	return def
}

func run(base, raffle, token, role string, verbose bool) error {
	raffleID, err := uuid.Parse(strings.TrimSpace(raffle))
	if err != nil {
		return fmt.Errorf("-raffle: %w", err)
	}
	if role != relayclient.RoleSanta && role != relayclient.RoleGiftee {
		return fmt.Errorf("-role must be %q or %q", relayclient.RoleSanta, relayclient.RoleGiftee)
	}

	log := logger.Nop()
	if verbose {
		if log, err = logger.New("development"); err != nil {
			return err
		}
		defer log.Sync()
	}

	client, err := relayclient.New(relayclient.Options{
		BaseURL:     base,
		RaffleID:    raffleID,
		Credential:  token,
		SyncHistory: true,
		Logger:      log,
		OnMessage:   printMessage,
		OnStateChange: func(from, to relayclient.State) {
			fmt.Fprintf(os.Stderr, "* %s\n", to)
		},
		OnError: func(err error) {
			fmt.Fprintf(os.Stderr, "! %v\n", err)
		},
	})
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go readInput(ctx, client, role)

	err = client.Run(ctx)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func readInput(ctx context.Context, client *relayclient.Client, role string) {
	sc := bufio.NewScanner(os.Stdin)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		if _, err := client.Send(ctx, line, role); err != nil {
			fmt.Fprintf(os.Stderr, "! not sent: %v\n", err)
		}
	}
	// EOF ends the session.
	client.Close()
}

func printMessage(m relayclient.Message) {
	who := "santa"
	if m.SenderRole == relayclient.RoleGiftee {
		who = "giftee"
	}
	fmt.Printf("[%s] %s: %s\n", m.CreatedAt.Local().Format("15:04"), who, m.Content)
}
