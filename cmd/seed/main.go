package main

import (
	"errors"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/ikkim/pos-backend/config"
	"github.com/ikkim/pos-backend/internal/app/model"
	"github.com/ikkim/pos-backend/internal/app/repository"
	"github.com/ikkim/pos-backend/internal/app/service"
	"github.com/ikkim/pos-backend/internal/db"
	"github.com/ikkim/pos-backend/pkg/logger"
	"gorm.io/gorm"
)

func main() {
	adminMobile := flag.String("admin-mobile", "", "create or promote this mobile number to admin")
	adminName := flag.String("admin-name", "Admin", "name used when the admin user is created")
	adminPassword := flag.String("admin-password", "", "password used when the admin user is created")
	yes := flag.Bool("yes", false, "skip the import confirmation prompt")
	flag.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: go run ./cmd/seed [flags] [catalog.xlsx]")
		flag.PrintDefaults()
	}
	flag.Parse()

	if flag.NArg() == 0 && *adminMobile == "" {
		flag.Usage()
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load config:", err)
	}

	logger.Initialize(logger.Config{
		Level:  "warn",
		Format: "console",
	})

	if err := db.Initialize(&cfg.Database); err != nil {
		log.Fatal("Failed to connect to database:", err)
	}
	defer db.Close()

	if err := db.Migrate(); err != nil {
		log.Fatal("Failed to run migrations:", err)
	}

	userRepo := repository.NewUserRepository(db.GetDB())
	productRepo := repository.NewProductRepository(db.GetDB())
	categoryRepo := repository.NewCategoryRepository(db.GetDB())

	if *adminMobile != "" {
		authService := service.NewAuthService(userRepo, cfg.JWT.Secret, cfg.JWT.TokenExpiry, cfg.JWT.RefreshTokenExpiry)
		user, err := ensureAdmin(authService, userRepo, *adminName, *adminMobile, *adminPassword)
		if err != nil {
			log.Fatal("Failed to set up admin user:", err)
		}
		fmt.Printf("Admin user ready: id=%d mobile=%s\n", user.ID, user.Mobile)
	}

	if flag.NArg() == 0 {
		return
	}

	filePath := flag.Arg(0)
	if !*yes {
		fmt.Printf("Import products from %s? (yes/no): ", filePath)
		var confirm string
		fmt.Scanln(&confirm)
		if confirm != "yes" && confirm != "y" {
			fmt.Println("Import cancelled.")
			return
		}
	}

	f, err := os.Open(filePath)
	if err != nil {
		log.Fatal("Failed to open XLSX:", err)
	}
	defer f.Close()

	productService := service.NewProductService(productRepo, categoryRepo, cfg.Scheduler.LowStockThreshold)
	result, err := productService.ImportCatalog(f)
	if err != nil {
		log.Fatal("Failed to import catalog:", err)
	}

	for _, rowErr := range result.Errors {
		fmt.Println("  skipped", rowErr)
	}
	fmt.Println("Import completed!")
	fmt.Printf("Created: %d, skipped: %d\n", result.Created, result.Skipped)
}

// ensureAdmin registers the user if the mobile is unknown, then grants the
// admin role.
func ensureAdmin(authService service.AuthService, userRepo repository.UserRepository, name, mobile, password string) (*model.User, error) {
	user, err := userRepo.FindByMobile(mobile)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		if password == "" {
			return nil, fmt.Errorf("-admin-password is required to create %s", mobile)
		}
		user, _, err = authService.Register(service.RegisterInput{
			Name:     name,
			Mobile:   mobile,
			Password: password,
		})
	}
	if err != nil {
		return nil, err
	}

	if user.Role == model.RoleAdmin {
		return user, nil
	}
	user.Role = model.RoleAdmin
	if err := userRepo.Update(user); err != nil {
		return nil, err
	}
	return user, nil
}
