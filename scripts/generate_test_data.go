package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/diario/internal/config"
	"github.com/diario/internal/db"
	"github.com/diario/internal/service"
)

type seedArticle struct {
	title      string
	subtitle   string
	categories string
	visits     int
	age        time.Duration
}

var seedArticles = []seedArticle{
	{"El dólar sube por tercera semana consecutiva", "Los mercados reaccionan a las nuevas medidas", "finanzas,dolar", 42, 2 * 24 * time.Hour},
	{"Debate en el Congreso por la reforma judicial", "Sesión maratónica en la Cámara baja", "legislativos,judiciales", 31, 3 * 24 * time.Hour},
	{"Estreno del festival de cine independiente", "Más de cien películas en cartelera", "cine,eventos", 18, 24 * time.Hour},
	{"Tensiones comerciales en Asia", "Impacto en las exportaciones regionales", "asia,internacional", 25, 5 * 24 * time.Hour},
	{"Nueva ley de financiamiento universitario", "Entrevista con el rector", "educacion,entrevistas", 9, 12 * time.Hour},
	{"Balance de la temporada turística", "Análisis de la ocupación hotelera", "portada,de_analisis", 57, 20 * 24 * time.Hour},
}

// 测试数据生成器
func main() {
	// 初始化数据库
	cfg := config.Load()
	if err := db.Init(cfg.DatabaseURL); err != nil {
		log.Fatal("数据库初始化失败:", err)
	}

	fmt.Println("开始生成测试数据...")

	ctx := context.Background()
	now := time.Now().UTC()

	createTestUsers()

	editor, err := findUser("redactor")
	if err != nil {
		log.Fatal("加载测试用户失败:", err)
	}

	if err := createTestArticles(ctx, editor, now); err != nil {
		log.Fatal("生成文章失败:", err)
	}
	if err := createTestMessages(ctx, editor, now); err != nil {
		log.Fatal("生成全局消息失败:", err)
	}

	fmt.Println("测试数据生成完成！")
	fmt.Println("用户: admin (密码: admin123), redactor (密码: redactor123), lector (密码: lector123)")
	fmt.Printf("文章: %d 篇测试文章\n", len(seedArticles))
}

// 创建测试用户
func createTestUsers() {
	users := []struct {
		username, password, role string
	}{
		{"admin", "admin123", db.RoleAdmin},
		{"redactor", "redactor123", db.RoleStaff},
		{"lector", "lector123", db.RoleReader},
	}
	for _, u := range users {
		if err := db.EnsureUser(db.DB, u.username, u.password, u.role); err != nil {
			log.Printf("创建用户 %s 失败: %v", u.username, err)
		}
	}
	fmt.Println("✅ 测试用户创建完成")
}

func findUser(username string) (*db.User, error) {
	var user db.User
	if err := db.DB.Where("username = ?", username).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// 创建测试文章，并按不同来源地址写入浏览记录
func createTestArticles(ctx context.Context, author *db.User, now time.Time) error {
	var count int64
	db.DB.Model(&db.Article{}).Count(&count)
	if count > 0 {
		fmt.Println("文章已存在，跳过创建")
		return nil
	}

	articles := service.NewArticleService(db.DB)
	visits := service.NewVisitService(db.DB)

	for i, seed := range seedArticles {
		published := now.Add(-seed.age)
		article, err := articles.Create(ctx, author, service.ArticleInput{
			Title:           seed.title,
			Subtitle:        seed.subtitle,
			Content:         fmt.Sprintf("## %s\n\n%s. Texto de prueba generado para desarrollo.", seed.title, seed.subtitle),
			Categories:      seed.categories,
			Status:          db.StatusPublished,
			PublishedAt:     &published,
			CommentsEnabled: i%2 == 0,
		}, published)
		if err != nil {
			return err
		}

		for v := 0; v < seed.visits; v++ {
			addr := fmt.Sprintf("10.0.%d.%d", i, v+1)
			if _, err := visits.RecordVisit(ctx, article.ID, addr, now); err != nil {
				return err
			}
		}
	}

	fmt.Println("✅ 测试文章创建完成")
	return nil
}

// 创建测试全局消息与回复
func createTestMessages(ctx context.Context, author *db.User, now time.Time) error {
	var count int64
	db.DB.Model(&db.GlobalMessage{}).Count(&count)
	if count > 0 {
		fmt.Println("全局消息已存在，跳过创建")
		return nil
	}

	messages := service.NewMessageService(db.DB)
	msg, err := messages.Create(ctx, author, service.MessageInput{
		Body:         "Reunión de redacción el lunes a las 10.",
		DurationDays: 3,
	}, now)
	if err != nil {
		return err
	}
	if _, err := messages.AddReply(ctx, msg.ID, author, "Confirmado, llevo la agenda.", now); err != nil {
		return err
	}

	if _, err := messages.Create(ctx, author, service.MessageInput{
		Body:         "Cierre de edición adelantado por feriado.",
		DurationDays: 1,
	}, now); err != nil {
		return err
	}

	fmt.Println("✅ 测试全局消息创建完成")
	return nil
}
