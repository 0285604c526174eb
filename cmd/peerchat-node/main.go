package main

import (
	"bufio"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"

	"github.com/fatih/color"
	"github.com/google/uuid"

	"peerchat/internal/gossip"
	"peerchat/internal/logging"
	"peerchat/internal/metrics"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

func run(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("peerchat-node", flag.ContinueOnError)
	fs.SetOutput(stderr)
	name := fs.String("name", "", "node identity (default: random)")
	port := fs.Int("port", gossip.DefaultBasePort, "UDP listen port")
	peers := fs.String("peers", "", "comma separated bootstrap endpoints (ip:port)")
	noForward := fs.Bool("noforward", false, "act as a rendezvous point, never forward private traffic")
	debug := fs.Bool("debug", false, "enable debug logging")
	if err := fs.Parse(args); err != nil {
		return 1
	}

	origin := *name
	if origin == "" {
		origin = "peer-" + uuid.NewString()[:8]
	}

	level := slog.LevelInfo
	if *debug {
		level = slog.LevelDebug
	}
	log := logging.NewSlogLogger(slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: level})))

	var bootstrap []string
	if *peers != "" {
		bootstrap = strings.Split(*peers, ",")
	}

	m := metrics.New()
	node, err := gossip.New(gossip.Config{
		Origin:     origin,
		ListenPort: *port,
		Bootstrap:  bootstrap,
		NoForward:  *noForward,
		Logger:     log,
		Metrics:    m,
	})
	if err != nil {
		fmt.Fprintf(stderr, "startup failed: %v\n", err)
		return 1
	}
	defer node.Close()
	if err := node.Start(); err != nil {
		fmt.Fprintf(stderr, "startup failed: %v\n", err)
		return 1
	}

	// The event printer and the REPL share one writer.
	out := &syncWriter{w: stdout}
	fmt.Fprintf(out, "READY name=%s addr=%s\n", origin, node.LocalAddr())
	go printEvents(node, out)
	repl(node, m, stdin, out)
	return 0
}

type syncWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (s *syncWriter) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.w.Write(p)
}

func printEvents(node *gossip.Node, w io.Writer) {
	peerCol := color.New(color.FgGreen)
	chatCol := color.New(color.FgCyan)
	privCol := color.New(color.FgMagenta)
	warnCol := color.New(color.FgYellow)

	for ev := range node.Events() {
		switch e := ev.(type) {
		case gossip.NewMessage:
			switch {
			case e.Private:
				privCol.Fprintf(w, "[pm] %s: %s\n", e.Origin, e.Text)
			case e.Broadcast:
				chatCol.Fprintf(w, "[all] %s: %s\n", e.Origin, e.Text)
			default:
				chatCol.Fprintf(w, "%s: %s\n", e.Origin, e.Text)
			}
		case gossip.PeerAdded:
			peerCol.Fprintf(w, "peer %s connected (%s)\n", e.Origin, e.Addr)
		case gossip.PeerExpired:
			warnCol.Fprintf(w, "peer %s timed out\n", e.Origin)
		case gossip.RouteUpdated:
			fmt.Fprintf(w, "route %s via %s (seq %d, %d hop)\n", e.Dest, e.NextHop, e.SeqNo, e.HopCount)
		case gossip.AddrTranslation:
			warnCol.Fprintf(w, "peer %s is behind a translator: reports %s, seen at %s\n", e.Origin, e.Reported, e.Public)
		case gossip.Retransmitted:
			warnCol.Fprintf(w, "retransmitting seq %d\n", e.Sequence)
		}
	}
}

func repl(node *gossip.Node, m *metrics.Metrics, stdin io.Reader, stdout io.Writer) {
	sc := bufio.NewScanner(stdin)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		cmd, rest, _ := strings.Cut(line, " ")
		switch cmd {
		case "msg":
			dest, text, ok := strings.Cut(rest, " ")
			if !ok {
				fmt.Fprintln(stdout, "usage: msg <peer> <text>")
				continue
			}
			node.SendDirect(dest, text)
		case "bcast":
			if rest == "" {
				fmt.Fprintln(stdout, "usage: bcast <text>")
				continue
			}
			node.Broadcast(rest)
		case "pm":
			dest, text, ok := strings.Cut(rest, " ")
			if !ok {
				fmt.Fprintln(stdout, "usage: pm <peer> <text>")
				continue
			}
			node.SendPrivate(dest, text)
		case "add":
			if err := node.AddPeer(rest); err != nil {
				fmt.Fprintf(stdout, "add failed: %v\n", err)
			}
		case "peers":
			for _, p := range node.PeerList() {
				pub := ""
				if p.Public.IsValid() {
					pub = " public=" + p.Public.String()
				}
				fmt.Fprintf(stdout, "%s %s last-seen=%s%s\n", p.Origin, p.Addr, p.LastSeen.Format("15:04:05"), pub)
			}
		case "routes":
			for _, r := range node.RouteList() {
				kind := "indirect"
				if r.Direct {
					kind = "direct"
				}
				fmt.Fprintf(stdout, "%s via %s seq=%d hops=%d %s\n", r.Dest, r.NextHop, r.SeqNo, r.HopCount, kind)
			}
		case "stats":
			data, err := json.MarshalIndent(m.Snapshot(), "", "  ")
			if err == nil {
				fmt.Fprintln(stdout, string(data))
			}
		case "quit", "exit":
			return
		default:
			fmt.Fprintln(stdout, "commands: msg bcast pm add peers routes stats quit")
		}
	}
}
