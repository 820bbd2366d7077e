package main

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"strings"

	"github.com/joho/godotenv"

	"linkpage/internal/auth"
	"linkpage/internal/config"
	"linkpage/internal/database"
	"linkpage/internal/repository"
	"linkpage/internal/service"
	"linkpage/internal/storage"
)

const usage = `用法:
  admin migrate                      创建或更新数据表
  admin create-user --email <addr>   创建已验证的账号并打印一次性初始密码`

func main() {
	_ = godotenv.Load()

	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, usage)
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	db, err := database.InitDatabase(cfg.Database)
	if err != nil {
		log.Fatalf("init database: %v", err)
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	defer database.Close(db, logger)

	if err := database.Migrate(db); err != nil {
		log.Fatalf("migrate: %v", err)
	}

	switch os.Args[1] {
	case "migrate":
		fmt.Println("数据表已是最新")
	case "create-user":
		fs := flag.NewFlagSet("create-user", flag.ExitOnError)
		email := fs.String("email", "", "账号邮箱（必填）")
		_ = fs.Parse(os.Args[2:])
		if err := createUser(context.Background(), repository.New(db), logger, *email); err != nil {
			log.Fatalf("create user: %v", err)
		}
	default:
		fmt.Fprintln(os.Stderr, usage)
		os.Exit(2)
	}
}

func createUser(ctx context.Context, repos repository.Repositories, logger *slog.Logger, email string) error {
	email = service.NormalizeEmail(email)
	if email == "" || !strings.Contains(email, "@") {
		return errors.New("missing or invalid --email")
	}

	password, err := generateRandomPassword(18)
	if err != nil {
		return err
	}
	hashed, err := auth.HashPassword(password)
	if err != nil {
		return err
	}

	user := &database.User{Email: email, PasswordHash: hashed, EmailVerified: true}
	if err := repos.Users.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return fmt.Errorf("user %q already exists", email)
		}
		return err
	}

	// 与注册流程一致，立即创建第一个页面。
	profiles, err := service.NewProfileService(repos, storage.InlineStore{}, logger).GetProfiles(ctx, user.ID)
	if err != nil {
		return err
	}

	fmt.Printf("已创建账号：%s\n", email)
	fmt.Printf("初始密码: %s\n", password)
	if len(profiles) > 0 {
		fmt.Printf("页面 slug: %s\n", profiles[0].Slug)
	}
	fmt.Printf("提示：请登录后通过 /api/auth/change-password 修改密码（该密码仅显示一次）。\n")
	return nil
}

func generateRandomPassword(bytesLen int) (string, error) {
	buf := make([]byte, bytesLen)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("read random bytes: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
