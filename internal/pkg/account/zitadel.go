package account

import (
	"context"
	"errors"
	"fmt"

	"github.com/zitadel/zitadel-go/v3/pkg/client"
	"github.com/zitadel/zitadel-go/v3/pkg/client/zitadel/session/v2"
	user "github.com/zitadel/zitadel-go/v3/pkg/client/zitadel/user/v2"
	"github.com/zitadel/zitadel-go/v3/pkg/zitadel"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// ZitadelConfig configures the Zitadel driver. Exactly one of PAT and
// KeyPath must be set.
type ZitadelConfig struct {
	Domain string
	// InsecurePort, when set, connects over plain HTTP on that port.
	InsecurePort   string
	PAT            string
	KeyPath        string
	OrganizationID string
}

// Zitadel delegates accounts to a Zitadel instance. The email doubles as
// the login name.
type Zitadel struct {
	client *client.Client
	orgID  string
}

// NewZitadel creates a Zitadel API client authenticated as a service user.
func NewZitadel(ctx context.Context, cfg ZitadelConfig) (*Zitadel, error) {
	if cfg.Domain == "" {
		return nil, errors.New("account: zitadel domain is required")
	}

	var auth client.Option
	switch {
	case cfg.PAT != "":
		auth = client.WithAuth(client.PAT(cfg.PAT))
	case cfg.KeyPath != "":
		auth = client.WithAuth(client.DefaultServiceUserAuthentication(cfg.KeyPath, client.ScopeZitadelAPI()))
	default:
		return nil, errors.New("account: zitadel pat or key path is required")
	}

	var inst *zitadel.Zitadel
	if cfg.InsecurePort != "" {
		inst = zitadel.New(cfg.Domain, zitadel.WithInsecure(cfg.InsecurePort))
	} else {
		inst = zitadel.New(cfg.Domain)
	}

	c, err := client.New(ctx, inst, auth)
	if err != nil {
		return nil, fmt.Errorf("account: zitadel client: %w", err)
	}

	return &Zitadel{client: c, orgID: cfg.OrganizationID}, nil
}

func (z *Zitadel) SignIn(ctx context.Context, email, password string) error {
	_, err := z.client.SessionServiceV2().CreateSession(ctx, &session.CreateSessionRequest{
		Checks: &session.Checks{
			User: &session.CheckUser{
				Search: &session.CheckUser_LoginName{LoginName: normalize(email)},
			},
			Password: &session.CheckPassword{Password: password},
		},
	})
	if err == nil {
		return nil
	}

	switch status.Code(err) {
	case codes.NotFound, codes.InvalidArgument, codes.PermissionDenied, codes.FailedPrecondition, codes.Unauthenticated:
		return ErrInvalidCredentials
	default:
		return fmt.Errorf("account: zitadel create session: %w", err)
	}
}

func (z *Zitadel) CreateAccount(ctx context.Context, email, password string) error {
	email = normalize(email)

	req := &user.CreateUserRequest{
		Username: &email,
		UserType: &user.CreateUserRequest_Human_{
			Human: &user.CreateUserRequest_Human{
				Profile: &user.SetHumanProfile{GivenName: email, FamilyName: email},
				Email: &user.SetHumanEmail{
					Email:        email,
					Verification: &user.SetHumanEmail_IsVerified{IsVerified: true},
				},
				PasswordType: &user.CreateUserRequest_Human_Password{
					Password: &user.Password{Password: password},
				},
			},
		},
	}
	if z.orgID != "" {
		req.OrganizationId = z.orgID
	}

	_, err := z.client.UserServiceV2().CreateUser(ctx, req)
	if status.Code(err) == codes.AlreadyExists {
		return ErrAccountExists
	}
	if err != nil {
		return fmt.Errorf("account: zitadel create user: %w", err)
	}
	return nil
}

func (z *Zitadel) UpdatePassword(ctx context.Context, email, newPassword string) error {
	userID, err := z.userID(ctx, normalize(email))
	if err != nil {
		return err
	}

	_, err = z.client.UserServiceV2().SetPassword(ctx, &user.SetPasswordRequest{
		UserId:      userID,
		NewPassword: &user.Password{Password: newPassword},
	})
	if err != nil {
		return fmt.Errorf("account: zitadel set password: %w", err)
	}
	return nil
}

func (z *Zitadel) userID(ctx context.Context, loginName string) (string, error) {
	resp, err := z.client.UserServiceV2().ListUsers(ctx, &user.ListUsersRequest{
		Queries: []*user.SearchQuery{{
			Query: &user.SearchQuery_UserNameQuery{
				UserNameQuery: &user.UserNameQuery{UserName: loginName},
			},
		}},
	})
	if err != nil {
		return "", fmt.Errorf("account: zitadel list users: %w", err)
	}
	if len(resp.Result) == 0 {
		return "", ErrAccountNotFound
	}
	return resp.Result[0].UserId, nil
}

// Close is a no-op; the gRPC connection lives as long as the process.
func (z *Zitadel) Close() error { return nil }
