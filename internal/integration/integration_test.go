package integration

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	goredis "github.com/redis/go-redis/v9"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/uptrace/bun/migrate"

	"trivia-room-service/internal/app"
	"trivia-room-service/internal/domain"
	"trivia-room-service/internal/game"
	pgstore "trivia-room-service/internal/infra/postgres"
	pgmigrations "trivia-room-service/internal/infra/postgres/migrations"
	redisstore "trivia-room-service/internal/infra/redis"
	"trivia-room-service/internal/quizgen"
)

type stubGenerator struct{}

func (stubGenerator) GenerateQuestions(_ context.Context, _ string, count int) ([]domain.Question, error) {
	questions := make([]domain.Question, 0, count)
	for i := 0; i < count; i++ {
		questions = append(questions, domain.Question{
			Text:         fmt.Sprintf("question %d", i),
			Options:      []string{"a", "b", "c", "d"},
			CorrectIndex: 1,
			Explanation:  "stub",
		})
	}
	return questions, nil
}

func TestSessionEndToEnd(t *testing.T) {
	ctx := context.Background()
	requireDocker(t)

	pgURL, pgCleanup := startPostgres(t, ctx)
	defer pgCleanup()
	redisURL, redisCleanup := startRedis(t, ctx)
	defer redisCleanup()

	migrateDB(t, ctx, pgURL)

	pool, err := pgxpool.Connect(ctx, pgURL)
	if err != nil {
		t.Fatalf("connect pg: %v", err)
	}
	defer pool.Close()

	redisClient, err := redisClientFromURL(redisURL)
	if err != nil {
		t.Fatalf("redis client: %v", err)
	}

	rooms := redisstore.NewRoomStore(redisClient, 2*time.Hour)
	var archive app.ArchiveRepository = pgstore.NewArchiveStore(pool, 30*24*time.Hour)
	archive = redisstore.NewArchiveCache(redisClient, archive, 5*time.Minute)
	loader := quizgen.NewLoader(stubGenerator{}, archive)
	service := app.NewRoomService(rooms, archive, loader, game.DefaultRules())

	room, err := service.CreateRoom(ctx, "integration", domain.VisibilityPublic)
	if err != nil {
		t.Fatalf("create room: %v", err)
	}
	if _, err := service.JoinRoom(ctx, room.Code, "alice"); err != nil {
		t.Fatalf("join alice: %v", err)
	}
	if _, err := service.JoinRoom(ctx, room.Code, "bob"); err != nil {
		t.Fatalf("join bob: %v", err)
	}

	loadResult, err := service.LoadQuestions(ctx, room.Code, quizgen.Request{Content: "notes", Count: 2})
	if err != nil {
		t.Fatalf("load questions: %v", err)
	}
	if len(loadResult.Questions) != 2 || loadResult.QuizID == "" {
		t.Fatalf("unexpected load result %+v", loadResult)
	}

	if err := service.StartGame(ctx, room.Code); err != nil {
		t.Fatalf("start: %v", err)
	}

	outcome, scores, err := service.SubmitAnswer(ctx, room.Code, "alice", 1)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if !outcome.Correct || outcome.Awarded <= 0 {
		t.Fatalf("expected scored answer, got %+v", outcome)
	}
	if scores["alice"] != outcome.TotalScore || scores["bob"] != 0 {
		t.Fatalf("unexpected scores %v", scores)
	}

	dup, _, err := service.SubmitAnswer(ctx, room.Code, "alice", 0)
	if err != nil {
		t.Fatalf("dup submit: %v", err)
	}
	if !dup.Duplicate {
		t.Fatalf("expected duplicate signal, got %+v", dup)
	}

	view, err := service.CurrentView(ctx, room.Code)
	if err != nil {
		t.Fatalf("view: %v", err)
	}
	if view.Phase != domain.PhaseAnswering || view.Question == nil || view.Question.CorrectIndex != nil {
		t.Fatalf("expected answer-safe view, got %+v", view)
	}

	// The archived set survives in Postgres and loads into a fresh room.
	fresh, err := service.CreateRoom(ctx, "replay", domain.VisibilityPrivate)
	if err != nil {
		t.Fatalf("create fresh: %v", err)
	}
	replayed, err := service.LoadArchivedQuiz(ctx, fresh.Code, loadResult.QuizID)
	if err != nil {
		t.Fatalf("replay: %v", err)
	}
	if len(replayed.Questions) != 2 {
		t.Fatalf("expected 2 replayed questions, got %d", len(replayed.Questions))
	}

	summaries, err := service.ListQuizzes(ctx)
	if err != nil {
		t.Fatalf("list quizzes: %v", err)
	}
	if len(summaries) != 1 || summaries[0].ID != loadResult.QuizID {
		t.Fatalf("unexpected quiz list %+v", summaries)
	}
	if err := service.DeleteQuiz(ctx, loadResult.QuizID); err != nil {
		t.Fatalf("delete quiz: %v", err)
	}
}

func startPostgres(t *testing.T, ctx context.Context) (string, func()) {
	t.Helper()
	req := tc.ContainerRequest{
		Image:        "postgres:15-alpine",
		Env:          map[string]string{"POSTGRES_USER": "trivia", "POSTGRES_PASSWORD": "triviapass", "POSTGRES_DB": "triviadb"},
		ExposedPorts: []string{"5432/tcp"},
		WaitingFor:   wait.ForListeningPort("5432/tcp").WithStartupTimeout(60 * time.Second),
	}
	container, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		if strings.Contains(err.Error(), "Cannot connect to the Docker daemon") {
			t.Skipf("docker not available: %v", err)
		}
		t.Fatalf("start postgres: %v", err)
	}
	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("host: %v", err)
	}
	port, err := container.MappedPort(ctx, "5432/tcp")
	if err != nil {
		t.Fatalf("port: %v", err)
	}
	dsn := fmt.Sprintf("postgres://trivia:triviapass@%s:%s/triviadb?sslmode=disable", host, port.Port())
	return dsn, func() {
		_ = container.Terminate(ctx)
	}
}

func startRedis(t *testing.T, ctx context.Context) (string, func()) {
	t.Helper()
	req := tc.ContainerRequest{
		Image:        "redis:7-alpine",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForListeningPort("6379/tcp").WithStartupTimeout(30 * time.Second),
	}
	container, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		if strings.Contains(err.Error(), "Cannot connect to the Docker daemon") {
			t.Skipf("docker not available: %v", err)
		}
		t.Fatalf("start redis: %v", err)
	}
	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("redis host: %v", err)
	}
	port, err := container.MappedPort(ctx, "6379/tcp")
	if err != nil {
		t.Fatalf("redis port: %v", err)
	}
	url := fmt.Sprintf("redis://%s:%s", host, port.Port())
	return url, func() {
		_ = container.Terminate(ctx)
	}
}

func migrateDB(t *testing.T, ctx context.Context, dsn string) {
	t.Helper()
	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn)))
	db := bun.NewDB(sqldb, pgdialect.New())
	defer db.Close()

	migrator := migrate.NewMigrator(db, pgmigrations.Migrations)
	if err := migrator.Init(ctx); err != nil {
		t.Fatalf("migrator init: %v", err)
	}
	if _, err := migrator.Migrate(ctx); err != nil {
		t.Fatalf("migrate: %v", err)
	}
}

func redisClientFromURL(url string) (*goredis.Client, error) {
	opts, err := goredis.ParseURL(url)
	if err != nil {
		return nil, err
	}
	return goredis.NewClient(&goredis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	}), nil
}

func requireDocker(t *testing.T) {
	t.Helper()
	if _, err := tc.NewDockerProvider(); err != nil {
		t.Skipf("docker not available: %v", err)
	}
}
