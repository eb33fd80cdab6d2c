package rest

import (
	"context"
	"net/http"
	"time"

	"github.com/Seklfreak/Guardian/cache"
	"github.com/Seklfreak/Guardian/guardian"
	"github.com/Seklfreak/Guardian/metrics"
	"github.com/Seklfreak/Guardian/store"
	"github.com/Seklfreak/Guardian/version"
	"github.com/emicklei/go-restful"
	"github.com/sirupsen/logrus"
)

const requestTimeout = 15 * time.Second

type Rest_Status struct {
	Status     string    `json:"status"`
	StoreReady bool      `json:"store_ready"`
	Guilds     int64     `json:"guilds"`
	Version    string    `json:"version"`
	StartedAt  time.Time `json:"started_at"`
}

type Rest_Immune_Role struct {
	RoleID      string    `json:"role_id"`
	RoleName    string    `json:"role_name"`
	Position    int       `json:"position"`
	MemberCount int       `json:"member_count"`
	AddedAt     time.Time `json:"added_at"`
}

type Rest_Member_Permissions struct {
	GuildID           string `json:"guild_id"`
	UserID            string `json:"user_id"`
	CanManageImmunity bool   `json:"can_manage_immunity"`
	CanRenameOthers   bool   `json:"can_rename_others"`
	CanRenameSelf     bool   `json:"can_rename_self"`
	IsImmune          bool   `json:"is_immune"`
	IsOwner           bool   `json:"is_owner"`
}

type Rest_Error struct {
	Error string `json:"error"`
}

type api struct {
	guardian *guardian.Guardian
	gateway  guardian.Gateway
}

// NewRestServices returns the read only API on the guardian state
func NewRestServices(g *guardian.Guardian, gateway guardian.Gateway) []*restful.WebService {
	a := &api{guardian: g, gateway: gateway}
	services := make([]*restful.WebService, 0)

	service := new(restful.WebService)
	service.
		Path("/").
		Produces(restful.MIME_JSON, "text/plain")
	service.Route(service.GET("").To(a.GetHealth))
	service.Route(service.GET("/status").To(a.GetStatus))
	services = append(services, service)

	service = new(restful.WebService)
	service.
		Path("/guild").
		Consumes(restful.MIME_JSON).
		Produces(restful.MIME_JSON)
	service.Route(service.GET("/{guild-id}/immune-roles").To(a.GetImmuneRoles))
	service.Route(service.GET("/{guild-id}/member/{user-id}/permissions").To(a.GetMemberPermissions))
	services = append(services, service)

	return services
}

func (a *api) GetHealth(request *restful.Request, response *restful.Response) {
	response.AddHeader("Content-Type", "text/plain")
	response.Write([]byte("Nickname Guardian Bot - Online"))
}

func (a *api) GetStatus(request *restful.Request, response *restful.Response) {
	status := Rest_Status{
		Status:     "online",
		StoreReady: a.guardian.Store().Ready(),
		Guilds:     metrics.GuildCount.Value(),
		Version:    version.Version,
	}
	if uptime := metrics.Uptime.Value(); uptime > 0 {
		status.StartedAt = time.Unix(uptime, 0).UTC()
	}

	response.WriteEntity(status)
}

func (a *api) GetImmuneRoles(request *restful.Request, response *restful.Response) {
	guildID := request.PathParameter("guild-id")

	ctx, cancel := context.WithTimeout(request.Request.Context(), requestTimeout)
	defer cancel()

	statuses, err := a.guardian.ListImmuneRoles(ctx, guildID)
	if err != nil {
		writeError(response, err)
		return
	}

	result := make([]Rest_Immune_Role, 0, len(statuses))
	for _, status := range statuses {
		result = append(result, Rest_Immune_Role{
			RoleID:      status.Role.ID,
			RoleName:    status.Role.Name,
			Position:    status.Role.Position,
			MemberCount: status.MemberCount(),
			AddedAt:     status.Record.AddedAt,
		})
	}
	response.WriteEntity(result)
}

func (a *api) GetMemberPermissions(request *restful.Request, response *restful.Response) {
	guildID := request.PathParameter("guild-id")
	userID := request.PathParameter("user-id")

	ctx, cancel := context.WithTimeout(request.Request.Context(), requestTimeout)
	defer cancel()

	guild, err := a.gateway.Guild(ctx, guildID)
	if err != nil {
		writeError(response, err)
		return
	}
	_, err = a.gateway.Member(ctx, guildID, userID)
	if err != nil {
		writeError(response, err)
		return
	}

	roles := a.guardian.Roles()
	result := Rest_Member_Permissions{
		GuildID:       guildID,
		UserID:        userID,
		CanRenameSelf: true,
		IsOwner:       userID == guild.OwnerID,
	}
	result.CanManageImmunity, err = roles.CanManageImmunity(ctx, guildID, userID)
	if err != nil {
		logger().Warnf("checking immunity management of %s failed: %s", userID, err.Error())
	}
	result.CanRenameOthers, _ = roles.CanRenameOthers(ctx, guildID, userID)
	result.IsImmune, _ = roles.IsImmune(ctx, guildID, userID)

	response.WriteEntity(result)
}

func writeError(response *restful.Response, err error) {
	status := http.StatusInternalServerError
	switch {
	case guardian.IsNotFound(err):
		status = http.StatusNotFound
	case guardian.IsForbidden(err):
		status = http.StatusForbidden
	case store.IsUnavailable(err):
		status = http.StatusServiceUnavailable
	}
	response.WriteHeaderAndEntity(status, Rest_Error{Error: err.Error()})
}

func logger() *logrus.Entry {
	return cache.GetLogger().WithField("module", "rest")
}
