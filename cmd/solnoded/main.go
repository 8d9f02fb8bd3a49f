// Command solnoded runs a single solnode peer: it loads or generates a
// wallet, builds a Node from flag-provided configuration, and runs until
// interrupted.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/empower1ds/solnode/internal/consensus"
	"github.com/empower1ds/solnode/internal/node"
	"github.com/empower1ds/solnode/internal/transport"
	"github.com/empower1ds/solnode/internal/walletfs"
)

func main() {
	host := flag.String("host", transport.LocalIP(), "external host address this node advertises to peers; defaults to this machine's outbound LAN IP")
	port := flag.Int("port", 0, "tcp listen port (0 picks a free local port)")
	roleFlag := flag.String("role", "user", "node role: leader or user")
	walletFile := flag.String("wallet", envOrDefault("WALLET_FILE", "wallet.txt"), "path to the wallet file holding this node's private key")
	flag.Parse()

	log.Println("SOLNODED: starting up...")

	role, err := parseRole(*roleFlag)
	if err != nil {
		log.Fatalf("SOLNODED: %v", err)
	}

	privKey, err := walletfs.EnsureWallet(*walletFile)
	if err != nil {
		// Wallet-load failure is a lifecycle failure: fatal before the
		// node ever starts.
		log.Fatalf("SOLNODED: wallet unavailable: %v", err)
	}
	log.Printf("SOLNODED: wallet loaded from %s", *walletFile)

	listenPort := *port
	if listenPort == 0 {
		picked, err := walletfs.PickPort()
		if err != nil {
			log.Fatalf("SOLNODED: %v", err)
		}
		listenPort = picked
	}

	n, err := node.New(node.Config{
		Host:          *host,
		Port:          listenPort,
		Role:          role,
		PrivateKeyB64: privKey,
	})
	if err != nil {
		log.Fatalf("SOLNODED: failed to construct node: %v", err)
	}
	log.Printf("SOLNODED: node address %s, role %s, listening on %s:%d", n.Address(), role, *host, listenPort)

	if err := n.Start(); err != nil {
		log.Fatalf("SOLNODED: failed to start node: %v", err)
	}

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)
	sig := <-shutdown
	log.Printf("SOLNODED: caught signal %v, disconnecting...", sig)

	n.Stop()
	log.Println("SOLNODED: shut down.")
}

func parseRole(s string) (consensus.Role, error) {
	switch s {
	case "leader":
		return consensus.RoleLeader, nil
	case "user":
		return consensus.RoleUser, nil
	default:
		return 0, fmt.Errorf("unrecognized role %q: want \"leader\" or \"user\"", s)
	}
}

func envOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
