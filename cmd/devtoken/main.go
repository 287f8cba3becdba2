// Command devtoken mints an access token for a member of a local database.
// Credential issuance belongs to the platform's auth service; this is only
// for exercising the chat API by hand.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/jobtalk/jobtalk-backend/internal/config"
	"github.com/jobtalk/jobtalk-backend/pkg/jwt"
)

func main() {
	env := os.Getenv("APP_ENV")
	if env == "" {
		env = "local"
	}
	configPath := flag.String("config", "configs/config."+env+".yaml", "config file path")
	userID := flag.Uint64("user", 0, "member id")
	role := flag.String("role", "STUDENT", "role claim (informational, the member record decides)")
	flag.Parse()

	if *userID == 0 {
		log.Fatal("-user is required")
	}

	config.LoadDotEnv(env)
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	token, err := jwt.NewManager(cfg.JWT.Secret, cfg.JWT.ExpiresIn).GenerateAccessToken(*userID, *role)
	if err != nil {
		log.Fatalf("Failed to sign token: %v", err)
	}
	fmt.Println(token)
}
