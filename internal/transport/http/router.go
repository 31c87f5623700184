package http

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"faculty-eval-service/internal/app"
	"faculty-eval-service/internal/domain"
)

// Services bundles the use cases exposed over HTTP.
type Services struct {
	Users       *app.UserService
	Questions   *app.QuestionService
	Evaluations *app.EvaluationService
	Config      *app.ConfigService
	Hub         *app.Hub
}

type RouterOptions struct {
	Tokens      TokenParser
	CORSOrigins []string
	Logger      *zap.Logger
	Metrics     *Metrics
	// LoginLimit and LoginBurst throttle login attempts per client IP.
	LoginLimit rate.Limit
	LoginBurst int
}

type handler struct {
	svc     Services
	tokens  TokenParser
	log     *zap.Logger
	metrics *Metrics
}

// NewRouter wires every REST route plus the admin websocket onto a gin engine.
func NewRouter(svc Services, opts RouterOptions) *gin.Engine {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Metrics == nil {
		opts.Metrics = NewMetrics()
	}
	if opts.LoginLimit == 0 {
		opts.LoginLimit = rate.Every(time.Second)
	}
	if opts.LoginBurst == 0 {
		opts.LoginBurst = 10
	}
	h := &handler{svc: svc, tokens: opts.Tokens, log: opts.Logger, metrics: opts.Metrics}

	router := gin.New()
	router.Use(gin.Recovery(), cors(opts.CORSOrigins), opts.Metrics.middleware(), requestLogger(opts.Logger))

	router.GET("/health", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"ok": true}) })
	router.GET("/metrics", opts.Metrics.handler())

	ws := NewWSHandler(svc.Hub, opts.Tokens, svc.Users, opts.Logger)
	ws.onConnect = func(delta int) { opts.Metrics.wsClients.Add(float64(delta)) }
	router.GET("/ws", gin.WrapF(ws.ServeWS))

	api := router.Group("/api")
	authn := h.authenticate()
	admin := h.requireRoles(domain.AdminRoles...)
	super := h.requireRoles(domain.SuperAdminRoles...)

	authGroup := api.Group("/auth")
	{
		authGroup.POST("/register", h.register)
		authGroup.POST("/login", rateLimit(newIPRateLimiter(opts.LoginLimit, opts.LoginBurst)), h.login)
		authGroup.GET("/me", authn, h.me)
	}

	users := api.Group("/users", authn)
	{
		users.GET("", admin, h.listUsers)
		users.GET("/participants", admin, h.listParticipants)
		users.POST("", super, h.createUser)
		users.PUT("/:id", h.updateUser)
		users.PATCH("/:id/reset-attempt", super, h.resetAttempt)
	}

	quiz := api.Group("/quiz", authn)
	{
		quiz.GET("", h.listQuestions)
		quiz.POST("", admin, h.createQuestion)
		quiz.PUT("/:id", admin, h.updateQuestion)
		quiz.DELETE("/:id", admin, h.deleteQuestion)
	}

	api.GET("/evaluations/leaderboard", h.leaderboard)
	evals := api.Group("/evaluations", authn)
	{
		evals.GET("", admin, h.listEvaluations)
		evals.GET("/faculty", admin, h.faculty)
		evals.GET("/analysis", admin, h.analysis)
		evals.GET("/me", h.myEvaluation)
		evals.POST("", h.submitQuiz)
		evals.PUT("/:employeeId", admin, h.submitDemoScore)
	}

	api.GET("/config", h.getConfig)
	api.PUT("/config", authn, admin, h.updateConfig)

	return router
}
