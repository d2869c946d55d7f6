// executive-setup bootstraps a deployment: it keeps or generates the shared
// API key and cookie secret, optionally hashes a dashboard password, writes
// everything to .env, seeds the task document, and places the per-host
// identity files hook callers read.
package main

import (
	"bufio"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"golang.org/x/crypto/bcrypt"

	"github.com/ncr5012/executive/internal/paths"
	"github.com/ncr5012/executive/internal/store"
)

const bcryptCost = 12

func main() {
	dataDir := flag.String("data", "data", "data directory")
	envFile := flag.String("env", ".env", ".env file path")
	port := flag.String("port", "7777", "server port written to .env")
	password := flag.String("password", "", "dashboard password (prompted when empty; leave blank at the prompt to skip sessions)")
	flag.Parse()

	st := store.New(paths.TasksFile(*dataDir))
	if err := st.Ensure(); err != nil {
		log.Fatalf("failed to seed task document: %v", err)
	}
	log.Printf("task document ready at %s", st.Path())

	env, err := godotenv.Read(*envFile)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			log.Fatalf("failed to read %s: %v", *envFile, err)
		}
		env = map[string]string{}
	} else {
		log.Printf("found existing %s", *envFile)
	}

	if env["EXECUTIVE_API_KEY"] == "" {
		env["EXECUTIVE_API_KEY"] = randomHex(32)
		log.Printf("generated new API key")
	} else {
		log.Printf("API key already set, keeping it")
	}
	if env["EXECUTIVE_COOKIE_SECRET"] == "" {
		env["EXECUTIVE_COOKIE_SECRET"] = randomHex(32)
		log.Printf("generated new cookie secret")
	}
	if env["EXECUTIVE_PORT"] == "" {
		env["EXECUTIVE_PORT"] = *port
	}

	if env["EXECUTIVE_PASSWORD_HASH"] == "" {
		pw := *password
		if pw == "" {
			pw = prompt("Set dashboard password (empty to skip password login): ")
		}
		if pw != "" {
			hash, err := bcrypt.GenerateFromPassword([]byte(pw), bcryptCost)
			if err != nil {
				log.Fatalf("failed to hash password: %v", err)
			}
			env["EXECUTIVE_PASSWORD_HASH"] = string(hash)
			log.Printf("password hashed")
		} else {
			log.Printf("no password set; dashboard sessions disabled")
		}
	} else {
		log.Printf("password hash already set")
	}

	if err := godotenv.Write(env, *envFile); err != nil {
		log.Fatalf("failed to write %s: %v", *envFile, err)
	}
	log.Printf("wrote %s", *envFile)

	// The server also picks the key up from the data dir when it runs
	// without the .env in its working directory.
	keyFile := paths.KeyFile(*dataDir)
	if err := os.WriteFile(keyFile, []byte(env["EXECUTIVE_API_KEY"]), 0o600); err != nil {
		log.Fatalf("failed to write %s: %v", keyFile, err)
	}

	writeHomeFiles(env["EXECUTIVE_API_KEY"], env["EXECUTIVE_PORT"])

	fmt.Println("\n--- Setup complete ---")
	fmt.Printf("API key: %s\n", env["EXECUTIVE_API_KEY"])
}

// writeHomeFiles places the identity files hook callers read. The key is
// always refreshed; machine and host are only created when missing so a
// customized identity survives re-running setup.
func writeHomeFiles(apiKey, port string) {
	keyFile, err := paths.HomeKeyFile()
	if err != nil {
		log.Fatalf("failed to resolve home dir: %v", err)
	}
	if err := os.WriteFile(keyFile, []byte(apiKey), 0o600); err != nil {
		log.Fatalf("failed to write %s: %v", keyFile, err)
	}
	log.Printf("wrote API key to %s", keyFile)

	machineFile, _ := paths.HomeMachineFile()
	if existing, ok := paths.ReadTrimmed(machineFile); ok {
		log.Printf("machine identity already set: %s", existing)
	} else if err := os.WriteFile(machineFile, []byte("local"), 0o644); err != nil {
		log.Fatalf("failed to write %s: %v", machineFile, err)
	} else {
		log.Printf("wrote machine identity to %s", machineFile)
	}

	hostFile, _ := paths.HomeHostFile()
	if existing, ok := paths.ReadTrimmed(hostFile); ok {
		log.Printf("dashboard host already set: %s", existing)
	} else {
		host := "http://localhost:" + port
		if err := os.WriteFile(hostFile, []byte(host), 0o644); err != nil {
			log.Fatalf("failed to write %s: %v", hostFile, err)
		}
		log.Printf("wrote dashboard host to %s", hostFile)
	}
}

func prompt(msg string) string {
	fmt.Print(msg)
	line, _ := bufio.NewReader(os.Stdin).ReadString('\n')
	return strings.TrimSpace(line)
}

func randomHex(n int) string {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		log.Fatalf("failed to generate random bytes: %v", err)
	}
	return hex.EncodeToString(buf)
}
