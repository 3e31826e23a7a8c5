// Command doorscan runs a door station: it watches a frame directory for QR codes and
// accepts typed invite codes on stdin.
package main

import (
	"bufio"
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	_ "github.com/lib/pq"

	"guestcheckin/config"
	"guestcheckin/internal/adapters/camera"
	"guestcheckin/internal/adapters/qrcode"
	"guestcheckin/internal/domain"
	"guestcheckin/internal/repository/postgres"
	"guestcheckin/internal/scanner"
	"guestcheckin/internal/services"
)

const selectCommand = "/event "

func main() {
	eventID := flag.String("event", "", "event to check guests into")
	frames := flag.String("frames", "", "directory the camera capture tool writes frames to")
	interval := flag.Duration("interval", 200*time.Millisecond, "frame polling interval")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	logger := config.NewLogger()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	// A second signal during shutdown kills the process.
	context.AfterFunc(ctx, stop)

	db, err := sql.Open("postgres", cfg.DBUrl)
	if err != nil {
		log.Fatalf("open database: %v", err)
	}
	defer db.Close()
	if err := db.PingContext(ctx); err != nil {
		log.Fatalf("ping database: %v", err)
	}

	store := services.NewStore(postgres.NewEventRepository(db), postgres.NewGuestRepository(db), logger)
	notifier := postgres.NewCheckInPublisher(db, logger, cfg.RequestTimeout)
	checkIn := services.NewCheckInService(store, notifier, logger, cfg.RequestTimeout)
	session := scanner.NewSession(camera.NewDirSource(*frames), qrcode.NewDecoder(), checkIn, logger,
		scanner.WithInterval(*interval))
	session.SelectEvent(*eventID)

	if *frames == "" {
		fmt.Println("No frame directory given. Enter codes manually.")
	} else if err := session.Start(ctx); err != nil {
		fmt.Println(domain.CameraErrorMessage(err))
	} else {
		defer session.Stop()
		fmt.Println("Camera scanning started. Codes can also be typed below.")
	}

	go printResults(ctx, session.Results(), os.Stdout)
	readCodes(ctx, session, os.Stdin, os.Stdout, logger)
}

// readCodes submits each line of in as a manual scan until EOF or ctx is done.
// A line of the form "/event <id>" switches the selected event.
func readCodes(ctx context.Context, session *scanner.Session, in io.Reader, out io.Writer, logger *slog.Logger) {
	lines := scanLines(ctx, in)
	for {
		select {
		case <-ctx.Done():
			return
		case line, ok := <-lines:
			if !ok {
				return
			}
			handleLine(ctx, session, strings.TrimSpace(line), out, logger)
		}
	}
}

// scanLines feeds the lines of in to the returned channel. A read blocked on in is
// left behind when ctx ends.
func scanLines(ctx context.Context, in io.Reader) <-chan string {
	lines := make(chan string)
	go func() {
		defer close(lines)
		sc := bufio.NewScanner(in)
		for sc.Scan() {
			select {
			case lines <- sc.Text():
			case <-ctx.Done():
				return
			}
		}
	}()
	return lines
}

func handleLine(ctx context.Context, session *scanner.Session, line string, out io.Writer, logger *slog.Logger) {
	if line == "" {
		return
	}
	if strings.HasPrefix(line, selectCommand) {
		session.SelectEvent(strings.TrimSpace(strings.TrimPrefix(line, selectCommand)))
		fmt.Fprintf(out, "Selected event %s\n", session.EventID())
		return
	}
	res, err := session.Submit(ctx, line)
	switch {
	case errors.Is(err, scanner.ErrBusy):
		fmt.Fprintln(out, "Still processing the previous scan, try again.")
	case err != nil:
		logger.Error("manual scan failed", "err", err)
	default:
		printResult(out, *res)
	}
}

func printResults(ctx context.Context, results <-chan domain.ScanResult, out io.Writer) {
	for {
		select {
		case <-ctx.Done():
			return
		case res := <-results:
			printResult(out, res)
		}
	}
}

func printResult(out io.Writer, res domain.ScanResult) {
	mark := "x"
	if res.Success {
		mark = "ok"
	}
	fmt.Fprintf(out, "[%s] %s\n", mark, res.Message)
}
