package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"strings"

	"plan-ledger.backend/pkg/crypto"
)

var (
	printfFn       = fmt.Printf
	generateHashFn = generateHash
	fatalfFn       = log.Fatalf
)

var stdin io.Reader = os.Stdin

// resolveSecret takes the first argument, or the first line of stdin so the
// secret stays out of shell history.
func resolveSecret(args []string, in io.Reader) (string, error) {
	if len(args) > 0 {
		return args[0], nil
	}
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", err
	}
	secret := strings.TrimRight(line, "\r\n")
	if secret == "" {
		return "", errors.New("usage: hash-gen <secret> or pipe the secret on stdin")
	}
	return secret, nil
}

func generateHash(secret string) (string, error) {
	return crypto.HashSecret(secret)
}

func main() {
	secret, err := resolveSecret(os.Args[1:], stdin)
	if err != nil {
		fatalfFn("Failed to read secret: %v", err)
		return
	}

	hash, err := generateHashFn(secret)
	if err != nil {
		fatalfFn("Failed to hash secret: %v", err)
		return
	}

	printfFn("Bcrypt Hash: %s\n", hash)
}
