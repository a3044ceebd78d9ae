// hashpass emits the argon2id hash of a passphrase for use in config.yaml
// (auth.contributor_hash / auth.admin_hash).
package main

import (
	"bufio"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/campusboard/bulletin/internal/auth"
)

func main() {
	pass := flag.String("pass", "", "passphrase to hash (reads stdin if empty)")
	flag.Parse()

	secret := *pass
	if secret == "" {
		fmt.Fprint(os.Stderr, "Passphrase: ")
		line, err := bufio.NewReader(os.Stdin).ReadString('\n')
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error reading passphrase: %v\n", err)
			os.Exit(1)
		}
		secret = strings.TrimRight(line, "\r\n")
	}

	if secret == "" {
		fmt.Fprintln(os.Stderr, "Refusing to hash an empty passphrase: empty secrets log in as students")
		os.Exit(1)
	}

	hash, err := auth.HashSecret(secret)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error hashing passphrase: %v\n", err)
		os.Exit(1)
	}

	fmt.Println(hash)
}
