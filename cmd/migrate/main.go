package main

import (
	"fmt"
	"log"
	"os"

	"github.com/neogenix/labquery/internal/database"
)

func main() {
	host := getEnv("DB_HOST", "localhost")
	port := getEnv("DB_PORT", "5432")
	dbname := getEnv("DB_NAME", "labquery")
	user := getEnv("DB_USER", "labquery")
	password := getEnv("DB_PASSWORD", "changeme")
	sslmode := getEnv("DB_SSLMODE", "disable")
	migrationsPath := getEnv("MIGRATIONS_PATH", "./internal/database/migrations")

	fmt.Println("=== Running Database Migrations ===")
	fmt.Printf("Connecting to database: %s@%s:%s/%s\n", user, host, port, dbname)

	if err := database.VerifyDatabase(host, port, user, password, dbname); err != nil {
		log.Fatalf("Database connectivity failed: %v", err)
	}
	fmt.Println("✓ Database connectivity verified")

	migrationConfig := database.MigrationConfig{
		DatabaseURL: fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
			user, password, host, port, dbname, sslmode),
		MigrationsPath: migrationsPath,
	}

	if err := database.RunMigrations(migrationConfig); err != nil {
		log.Fatalf("Migration failed: %v", err)
	}

	fmt.Println("✓ Database migrations completed successfully!")
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
