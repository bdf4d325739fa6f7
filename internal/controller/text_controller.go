package controller

import (
	"strings"

	"harmony-api/internal/dto"
	"harmony-api/internal/model"
	"harmony-api/internal/pkg/serverutils"
	"harmony-api/internal/service"

	"github.com/gofiber/fiber/v2"
)

type ITextController interface {
	RegisterRoutes(r fiber.Router)
	Parse(ctx *fiber.Ctx) error
	Match(ctx *fiber.Ctx) error
	SearchInstruments(ctx *fiber.Ctx) error
	Examples(ctx *fiber.Ctx) error
	GetCache(ctx *fiber.Ctx) error
	SaveCache(ctx *fiber.Ctx) error
}

type textController struct {
	service   service.ITextService
	snapshots service.ISnapshotService
	jwtSecret string
}

func NewTextController(service service.ITextService, snapshots service.ISnapshotService, jwtSecret string) ITextController {
	return &textController{
		service:   service,
		snapshots: snapshots,
		jwtSecret: jwtSecret,
	}
}

func (c *textController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/text")
	h.Post("/parse", c.Parse)
	h.Post("/match", c.Match)
	h.Post("/search_instruments", c.SearchInstruments)
	h.Post("/examples", c.Examples)

	admin := h.Group("/cache", serverutils.JwtMiddleware(c.jwtSecret, true))
	admin.Get("", c.GetCache)
	admin.Post("/save", c.SaveCache)
}

func (c *textController) Parse(ctx *fiber.Ctx) error {
	var files []model.RawFile
	if err := ctx.BodyParser(&files); err != nil {
		return serverutils.BadRequest("Invalid request body", err)
	}

	if err := serverutils.ValidateRequest(dto.ParseRequest{Files: files}); err != nil {
		return err
	}

	res, err := c.service.Parse(ctx.Context(), files)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success parse files", res))
}

func (c *textController) Match(ctx *fiber.Ctx) error {
	var req dto.MatchRequest
	if err := ctx.BodyParser(&req); err != nil {
		return serverutils.BadRequest("Invalid request body", err)
	}
	req.IncludeCatalogueMatches = ctx.QueryBool("include_catalogue_matches", false)
	req.CatalogueSources = queryList(ctx, "catalogue_sources")

	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res, err := c.service.Match(ctx.Context(), &req)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success match instruments", res))
}

func (c *textController) SearchInstruments(ctx *fiber.Ctx) error {
	var req dto.SearchInstrumentsRequest
	if len(ctx.Body()) > 0 {
		if err := ctx.BodyParser(&req); err != nil {
			return serverutils.BadRequest("Invalid request body", err)
		}
	}
	req.Query = ctx.Query("query")
	req.Sources = queryList(ctx, "sources")
	req.MaxResults = ctx.QueryInt("max_results", service.DefaultMaxSearchResults)

	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res, err := c.service.SearchInstruments(ctx.Context(), &req)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success search instruments", res))
}

func (c *textController) Examples(ctx *fiber.Ctx) error {
	res, err := c.service.Examples(ctx.Context())
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success get examples", res))
}

func (c *textController) GetCache(ctx *fiber.Ctx) error {
	return ctx.JSON(serverutils.SuccessResponse("Success get cache", c.service.Cache(ctx.Context())))
}

func (c *textController) SaveCache(ctx *fiber.Ctx) error {
	if err := c.snapshots.RequestSnapshot(ctx.Context(), "admin request"); err != nil {
		return err
	}

	return ctx.Status(fiber.StatusAccepted).JSON(serverutils.SuccessResponse("Snapshot requested", dto.CacheSaveResponse{Requested: true}))
}

// queryList collects a repeated query parameter, also splitting comma separated values.
func queryList(ctx *fiber.Ctx, key string) []string {
	var out []string
	for _, raw := range ctx.Context().QueryArgs().PeekMulti(key) {
		for _, v := range strings.Split(string(raw), ",") {
			if v = strings.TrimSpace(v); v != "" {
				out = append(out, v)
			}
		}
	}
	return out
}
