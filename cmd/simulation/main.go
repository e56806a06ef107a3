package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"time"

	"actually-colab-be/internal/bootstrap"
	"actually-colab-be/internal/config"
	"actually-colab-be/internal/entity"
	"actually-colab-be/internal/pkg/serverutils"
	"actually-colab-be/internal/server"
	"actually-colab-be/pkg/client"
	"actually-colab-be/pkg/protocol"

	"github.com/fatih/color"
	"github.com/google/uuid"
)

// Simulation: two users on an in-memory server open the demo notebook, fight
// over a lock, edit, run and chat, then one of them drops.

var (
	header = color.New(color.FgYellow, color.Bold).PrintfFunc()
	failed = color.New(color.FgRed).PrintfFunc()
)

type participant struct {
	name     string
	user     *entity.User
	client   *client.Client
	logf     func(format string, a ...interface{})
	contents chan protocol.NotebookContents
	locked   chan protocol.Cell
	unlocked chan protocol.Cell
	errors   chan protocol.ErrorReport
	closed   chan protocol.NotebookRef
}

func main() {
	port := flag.String("port", "3900", "port for the in-memory server")
	flag.Parse()

	cfg := config.Load()
	cfg.App.Port = *port
	cfg.App.NatsURL = ""
	cfg.App.RedisURL = ""
	cfg.Database.Driver = "memory"
	if cfg.Auth.JWTSecret == "" {
		cfg.Auth.JWTSecret = "simulation-secret"
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	container := bootstrap.NewContainer(nil, cfg)
	defer container.Close()
	if err := container.Start(ctx); err != nil {
		log.Fatalf("start: %v", err)
	}

	demo, err := bootstrap.SeedDemo(ctx, container.RepositoryFactory, "Alice", "Bob")
	if err != nil {
		log.Fatalf("seed: %v", err)
	}

	srv := server.New(cfg, container)
	go func() {
		if err := srv.Run(); err != nil {
			log.Printf("server stopped: %v", err)
		}
	}()
	defer srv.Shutdown()
	waitHealthy("http://localhost:" + *port + "/api/health")

	wsURL := "ws://localhost:" + *port + "/api/ws"
	alice := join(ctx, cfg.Auth.JWTSecret, wsURL, "Alice", demo.Users[0], color.New(color.FgCyan).PrintfFunc())
	bob := join(ctx, cfg.Auth.JWTSecret, wsURL, "Bob", demo.Users[1], color.New(color.FgMagenta).PrintfFunc())
	defer alice.client.Close()

	header("== open notebook %s ==\n", demo.NotebookId)
	must(alice.client.OpenNotebook(demo.NotebookId))
	contents := await(alice.contents, "alice contents")
	must(bob.client.OpenNotebook(demo.NotebookId))
	await(bob.contents, "bob contents")

	cell := contents.Cells[len(contents.Cells)-1].CellId

	header("== lock race ==\n")
	must(alice.client.LockCell(demo.NotebookId, cell))
	await(bob.locked, "bob sees lock")
	must(bob.client.LockCell(demo.NotebookId, cell))
	report := await(bob.errors, "bob lock rejected")
	bob.logf("[Bob] lock rejected: %s %s\n", report.Code, report.Message)

	header("== typing ==\n")
	for _, s := range []string{"print(", "print('hel", "print('hello, bob')"} {
		must(alice.client.EditCell(demo.NotebookId, cell, protocol.CellData{Contents: s}))
		time.Sleep(200 * time.Millisecond)
	}
	must(alice.client.UnlockCell(demo.NotebookId, cell))
	unlocked := await(bob.unlocked, "bob sees unlock")
	bob.logf("[Bob] final contents: %q\n", unlocked.Contents)

	header("== output and chat ==\n")
	must(alice.client.UpdateOutput(demo.NotebookId, cell, "hello, bob\n"))
	must(bob.client.SendChatMessage(demo.NotebookId, "nice"))
	time.Sleep(4 * time.Second)

	header("== bob drops ==\n")
	_ = bob.client.Close()
	await(alice.closed, "alice sees bob leave")

	header("== done ==\n")
}

func join(ctx context.Context, secret, url, name string, user *entity.User, logf func(string, ...interface{})) *participant {
	p := &participant{
		name:     name,
		user:     user,
		logf:     logf,
		contents: make(chan protocol.NotebookContents, 1),
		locked:   make(chan protocol.Cell, 4),
		unlocked: make(chan protocol.Cell, 4),
		errors:   make(chan protocol.ErrorReport, 4),
		closed:   make(chan protocol.NotebookRef, 4),
	}
	tag := "[" + name + "]"

	listener := client.Listener{
		OnNotebookContents: func(c protocol.NotebookContents, _ *uuid.UUID) {
			logf("%s contents: %d cells, %d connected\n", tag, len(c.Cells), len(c.ConnectedUsers))
			p.contents <- c
		},
		OnNotebookOpened: func(u protocol.User, _ *uuid.UUID) {
			logf("%s %s opened the notebook\n", tag, u.Name)
		},
		OnNotebookClosed: func(ref protocol.NotebookRef, by *uuid.UUID) {
			logf("%s notebook closed by %s\n", tag, who(by))
			p.closed <- ref
		},
		OnCellLocked: func(c protocol.Cell, by *uuid.UUID) {
			logf("%s cell %s locked by %s\n", tag, short(c.CellId), who(by))
			p.locked <- c
		},
		OnCellUnlocked: func(c protocol.Cell, by *uuid.UUID) {
			logf("%s cell %s unlocked by %s\n", tag, short(c.CellId), who(by))
			p.unlocked <- c
		},
		OnCellEdited: func(c protocol.Cell, by *uuid.UUID) {
			logf("%s cell %s edited: %q\n", tag, short(c.CellId), c.Contents)
		},
		OnOutputUpdated: func(o protocol.Output, by *uuid.UUID) {
			logf("%s output for %s: %q\n", tag, short(o.CellId), o.Output)
		},
		OnChatMessage: func(m protocol.ChatMessage, by *uuid.UUID) {
			logf("%s chat from %s: %s\n", tag, who(by), m.Message)
		},
		OnError: func(r protocol.ErrorReport) {
			p.errors <- r
		},
		OnProtocolError: func(err error) {
			failed("%s protocol error: %v\n", tag, err)
		},
	}

	token, err := serverutils.IssueToken(secret, user.Id, time.Hour)
	if err != nil {
		log.Fatalf("token: %v", err)
	}
	c, err := client.Dial(ctx, url, token, listener, client.DefaultOptions())
	if err != nil {
		log.Fatalf("%s dial: %v", name, err)
	}
	p.client = c
	return p
}

func waitHealthy(url string) {
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		resp, err := http.Get(url)
		if err == nil {
			resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				return
			}
		}
		time.Sleep(50 * time.Millisecond)
	}
	log.Fatalf("server at %s did not come up", url)
}

func await[T any](ch chan T, what string) T {
	select {
	case v := <-ch:
		return v
	case <-time.After(10 * time.Second):
		failed("timed out waiting for %s\n", what)
		log.Fatal("simulation failed")
	}
	var zero T
	return zero
}

func who(id *uuid.UUID) string {
	if id == nil {
		return "server"
	}
	return short(*id)
}

func short(id uuid.UUID) string {
	return id.String()[:8]
}

func must(err error) {
	if err != nil {
		failed("error: %v\n", err)
		log.Fatal(err)
	}
}

