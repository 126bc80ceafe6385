package main

import (
	"fmt"
	"log"
	"os"

	"github.com/gin-gonic/gin"
)

var jwtSecret []byte // loaded from config (PAYMGR_JWT_SECRET overrides)

func main() {
	cfg, err := loadConfig()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	jwtSecret = []byte(cfg.JWT.Secret)

	// Support a lightweight migrate command: `./paymgr migrate`
	// It runs AutoMigrate and seeding then exits. Useful for CI or manual DB setup.
	if len(os.Args) > 1 && os.Args[1] == "migrate" {
		initDB(cfg)
		fmt.Println("migration and seeding completed")
		return
	}

	initDB(cfg)

	gin.SetMode(cfg.Server.Mode)
	r := gin.Default()

	setupRoutes(r)

	r.Run(cfg.Server.Addr)
}
