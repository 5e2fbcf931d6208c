package services

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/Dosada05/esports-arena/locks"
	"github.com/Dosada05/esports-arena/models"
	"github.com/Dosada05/esports-arena/repositories"
	"github.com/Dosada05/esports-arena/utils"
)

// TeamService is the team registry and its membership workflow.
type TeamService interface {
	CreateTeam(ctx context.Context, captainID, name string) (*models.Team, error)
	RequestJoin(ctx context.Context, userID, teamName string) error
	ReviewRequests(ctx context.Context, captainID string) ([]models.JoinRequest, error)
	DecideRequest(ctx context.Context, captainID, applicantName string, approved bool) (*models.Team, error)
	Kick(ctx context.Context, captainID, memberName string) (*models.Team, error)
	Leave(ctx context.Context, userID string) error

	GetByName(ctx context.Context, name string) (*models.Team, error)
	GetByID(ctx context.Context, id string) (*models.Team, error)
	GetMine(ctx context.Context, userID string) (*models.Team, error)
	List(ctx context.Context) ([]models.Team, error)
}

type teamService struct {
	store    repositories.Store
	guard    guard
	capacity int
	logger   *slog.Logger
}

func NewTeamService(store repositories.Store, locker locks.Locker, lockWait time.Duration, capacity int, logger *slog.Logger) TeamService {
	return &teamService{
		store:    store,
		guard:    guard{locker: locker, wait: lockWait},
		capacity: capacity,
		logger:   logger,
	}
}

func (s *teamService) CreateTeam(ctx context.Context, captainID, name string) (*models.Team, error) {
	name, err := validateName("name", name)
	if err != nil {
		return nil, err
	}

	unlock, err := s.guard.lockTeam(ctx, name)
	if err != nil {
		return nil, err
	}
	defer unlock()

	var team *models.Team
	err = s.store.WithinTx(ctx, func(tx repositories.Store) error {
		user, current, err := loadActor(ctx, tx, captainID)
		if err != nil {
			return err
		}
		if err := authorize(OpCreateTeam, capabilities(user, nil, nil)); err != nil {
			return err
		}
		if current != nil {
			return ErrUserAlreadyInTeam
		}
		if _, err := tx.Teams().GetByName(ctx, name); err == nil {
			return ErrTeamNameTaken
		}

		team = &models.Team{
			ID:        utils.NewID(),
			Name:      name,
			CaptainID: user.ID,
			Capacity:  s.capacity,
			Members:   []models.TeamMember{{UserID: user.ID, Username: user.Username, JoinedAt: nowUTC()}},
		}
		team.Status = team.RosterStatus()

		if err := tx.Teams().Create(ctx, team); err != nil {
			return handleRepositoryError(err)
		}
		return handleRepositoryError(tx.Teams().DeleteRequestsByUser(ctx, user.ID))
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("team created", slog.String("team", team.Name), slog.String("captain_id", captainID))
	return team, nil
}

func (s *teamService) RequestJoin(ctx context.Context, userID, teamName string) error {
	teamName = strings.TrimSpace(teamName)
	if teamName == "" {
		return MissingFieldError("name")
	}

	unlock, err := s.guard.lockTeam(ctx, teamName)
	if err != nil {
		return err
	}
	defer unlock()

	return s.store.WithinTx(ctx, func(tx repositories.Store) error {
		user, current, err := loadActor(ctx, tx, userID)
		if err != nil {
			return err
		}
		if err := authorize(OpRequestJoin, capabilities(user, nil, nil)); err != nil {
			return err
		}
		if current != nil {
			return ErrUserAlreadyInTeam
		}

		team, err := tx.Teams().GetByName(ctx, teamName)
		if err != nil {
			return handleRepositoryError(err)
		}
		if !team.Editable() {
			return ErrTeamNotEditable
		}
		if team.Status != models.TeamStatusFree {
			return ErrTeamNotFree
		}
		if team.HasRequestFrom(user.ID) {
			return ErrRequestAlreadySent
		}

		team.Requests = append(team.Requests, models.JoinRequest{
			UserID:    user.ID,
			Username:  user.Username,
			CreatedAt: nowUTC(),
		})
		return handleRepositoryError(tx.Teams().Update(ctx, team))
	})
}

func (s *teamService) ReviewRequests(ctx context.Context, captainID string) ([]models.JoinRequest, error) {
	user, team, err := loadActor(ctx, s.store, captainID)
	if err != nil {
		return nil, err
	}
	if team == nil {
		return nil, ErrUserHasNoTeam
	}
	if err := authorize(OpReviewRequests, capabilities(user, team, nil)); err != nil {
		return nil, err
	}
	if team.Requests == nil {
		return []models.JoinRequest{}, nil
	}
	return team.Requests, nil
}

func (s *teamService) DecideRequest(ctx context.Context, captainID, applicantName string, approved bool) (*models.Team, error) {
	applicantName = strings.TrimSpace(applicantName)
	if applicantName == "" {
		return nil, MissingFieldError("name")
	}

	var team *models.Team
	err := s.mutateOwnTeam(ctx, captainID, OpDecideRequest, func(tx repositories.Store, t *models.Team) error {
		team = t
		req, ok := team.RequestByName(applicantName)
		if !ok {
			return ErrRequestNotFound
		}
		team.RemoveRequest(req.UserID)

		if !approved {
			return handleRepositoryError(tx.Teams().Update(ctx, team))
		}

		if len(team.Members) >= team.Capacity {
			return ErrTeamFull
		}
		applicant, err := tx.Users().GetByID(ctx, req.UserID)
		if err != nil {
			return handleRepositoryError(err)
		}
		if applicant.TeamID != nil {
			return ErrUserAlreadyInTeam
		}

		team.Members = append(team.Members, models.TeamMember{
			UserID:   applicant.ID,
			Username: applicant.Username,
			JoinedAt: nowUTC(),
		})
		team.Status = team.RosterStatus()

		if err := tx.Teams().Update(ctx, team); err != nil {
			return handleRepositoryError(err)
		}
		return handleRepositoryError(tx.Teams().DeleteRequestsByUser(ctx, applicant.ID))
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("join request decided",
		slog.String("team", team.Name),
		slog.String("applicant", applicantName),
		slog.Bool("approved", approved))
	return team, nil
}

func (s *teamService) Kick(ctx context.Context, captainID, memberName string) (*models.Team, error) {
	memberName = strings.TrimSpace(memberName)
	if memberName == "" {
		return nil, MissingFieldError("member")
	}

	var team *models.Team
	err := s.mutateOwnTeam(ctx, captainID, OpKick, func(tx repositories.Store, t *models.Team) error {
		team = t
		member, ok := team.MemberByName(memberName)
		if !ok {
			return ErrPlayerNotFound
		}
		if member.UserID == team.CaptainID {
			return ErrCaptainSelfKick
		}
		team.RemoveMember(member.UserID)
		team.Status = team.RosterStatus()
		return handleRepositoryError(tx.Teams().Update(ctx, team))
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("member kicked", slog.String("team", team.Name), slog.String("member", memberName))
	return team, nil
}

func (s *teamService) Leave(ctx context.Context, userID string) error {
	var team *models.Team
	dissolved := false
	err := s.mutateOwnTeam(ctx, userID, OpLeave, func(tx repositories.Store, t *models.Team) error {
		team = t
		team.RemoveMember(userID)

		if len(team.Members) == 0 {
			dissolved = true
			return handleRepositoryError(tx.Teams().Delete(ctx, team.ID))
		}
		if team.CaptainID == userID {
			// Members are kept in join order.
			team.CaptainID = team.Members[0].UserID
		}
		team.Status = team.RosterStatus()
		return handleRepositoryError(tx.Teams().Update(ctx, team))
	})
	if err != nil {
		return err
	}

	if dissolved {
		s.logger.Info("team dissolved", slog.String("team", team.Name))
	} else {
		s.logger.Info("member left team", slog.String("team", team.Name), slog.String("captain_id", team.CaptainID))
	}
	return nil
}

// mutateOwnTeam runs fn on the caller's team under the team lock and inside a transaction,
// after the authorization and roster-frozen checks shared by every roster mutation.
func (s *teamService) mutateOwnTeam(ctx context.Context, userID string, op Operation, fn func(tx repositories.Store, team *models.Team) error) error {
	_, team, err := loadActor(ctx, s.store, userID)
	if err != nil {
		return err
	}
	if team == nil {
		return ErrUserHasNoTeam
	}

	unlock, err := s.guard.lockTeam(ctx, team.Name)
	if err != nil {
		return err
	}
	defer unlock()

	return s.store.WithinTx(ctx, func(tx repositories.Store) error {
		user, current, err := loadActor(ctx, tx, userID)
		if err != nil {
			return err
		}
		if current == nil {
			return ErrUserHasNoTeam
		}
		if current.ID != team.ID {
			return ErrConcurrentUpdate
		}
		if err := authorize(op, capabilities(user, current, nil)); err != nil {
			return err
		}
		if !current.Editable() {
			return ErrTeamNotEditable
		}
		return fn(tx, current)
	})
}

func (s *teamService) GetByName(ctx context.Context, name string) (*models.Team, error) {
	team, err := s.store.Teams().GetByName(ctx, name)
	return team, handleRepositoryError(err)
}

func (s *teamService) GetByID(ctx context.Context, id string) (*models.Team, error) {
	team, err := s.store.Teams().GetByID(ctx, id)
	return team, handleRepositoryError(err)
}

func (s *teamService) GetMine(ctx context.Context, userID string) (*models.Team, error) {
	_, team, err := loadActor(ctx, s.store, userID)
	if err != nil {
		return nil, err
	}
	if team == nil {
		return nil, ErrUserHasNoTeam
	}
	return team, nil
}

func (s *teamService) List(ctx context.Context) ([]models.Team, error) {
	teams, err := s.store.Teams().List(ctx)
	if err != nil {
		return nil, handleRepositoryError(err)
	}
	if teams == nil {
		teams = []models.Team{}
	}
	return teams, nil
}
