// Command tools gathers small development helpers:
//
//	tools token -uid alice -name Alice      prints a signed JWT for local testing
//	tools blacklist -db ./data/badger idiot stores words in the moderation blacklist
package main

import (
	"chatchat/auth"
	"chatchat/domain/chat"
	"chatchat/moderation"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/joho/godotenv"
)

func main() {
	_ = godotenv.Load()
	if len(os.Args) < 2 {
		usage()
	}

	var err error
	switch os.Args[1] {
	case "token":
		err = token(os.Args[2:])
	case "blacklist":
		err = blacklist(os.Args[2:])
	default:
		usage()
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage: tools token|blacklist [flags]")
	os.Exit(2)
}

func token(args []string) error {
	fs := flag.NewFlagSet("token", flag.ExitOnError)
	secret := fs.String("secret", os.Getenv("JWT_HMAC_SECRET"), "HMAC secret shared with the server")
	uid := fs.String("uid", "", "User id")
	name := fs.String("name", "", "Display name")
	email := fs.String("email", "", "Email")
	ttl := fs.Duration("ttl", 24*time.Hour, "Token lifetime")
	_ = fs.Parse(args)

	if *secret == "" || *uid == "" {
		return fmt.Errorf("-secret and -uid are required")
	}
	signed, err := auth.GenerateToken(*secret, chat.Identity{UserID: *uid, DisplayName: *name, Email: *email}, *ttl)
	if err != nil {
		return err
	}
	fmt.Println(signed)
	return nil
}

func blacklist(args []string) error {
	fs := flag.NewFlagSet("blacklist", flag.ExitOnError)
	dbPath := fs.String("db", "./data/badger", "Path to badger DB")
	_ = fs.Parse(args)
	if fs.NArg() == 0 {
		return fmt.Errorf("no words given")
	}

	db, err := badger.Open(badger.DefaultOptions(*dbPath).WithLoggingLevel(badger.WARNING))
	if err != nil {
		return fmt.Errorf("database opening failed: %w", err)
	}
	defer db.Close()

	if err := moderation.AddToBlacklist(db, fs.Args()...); err != nil {
		return err
	}
	fmt.Printf("%d words stored\n", fs.NArg())
	return nil
}
