// Package seed bootstraps a team of profiles from a YAML or JSON file
package seed

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"os"
	"strings"

	"github.com/triagedesk/backend/internal/apperrors"
	"github.com/triagedesk/backend/internal/models"
	"github.com/triagedesk/backend/internal/services"
	"golang.org/x/crypto/bcrypt"
	"gopkg.in/yaml.v3"
)

// Member is one person in a team file. A missing password is generated.
type Member struct {
	Email    string `yaml:"email" json:"email"`
	Password string `yaml:"password" json:"password"`
	FullName string `yaml:"full_name" json:"full_name"`
	Role     string `yaml:"role" json:"role"`
}

type TeamFile struct {
	Members []Member `yaml:"members" json:"members"`
}

// Credential reports the login of a profile the seeder touched
type Credential struct {
	Email    string
	Password string
	Role     models.Role
	Created  bool
}

// LoadTeamFile parses path; JSON is accepted as a subset of YAML
func LoadTeamFile(path string) (*TeamFile, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read team file: %w", err)
	}
	return ParseTeam(raw)
}

func ParseTeam(raw []byte) (*TeamFile, error) {
	var team TeamFile
	if err := yaml.Unmarshal(raw, &team); err != nil {
		return nil, fmt.Errorf("failed to parse team file: %w", err)
	}
	if len(team.Members) == 0 {
		return nil, fmt.Errorf("team file lists no members")
	}
	return &team, nil
}

// Seed creates every member that does not exist yet. Existing profiles are
// left untouched and reported with Created false and no password.
func Seed(ctx context.Context, directory *services.ProfileDirectory, team *TeamFile, cost int) ([]Credential, error) {
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	creds := make([]Credential, 0, len(team.Members))
	for i, m := range team.Members {
		email := strings.ToLower(strings.TrimSpace(m.Email))
		if email == "" {
			return creds, fmt.Errorf("member %d: email is required", i+1)
		}
		role, ok := models.ParseRole(m.Role)
		if !ok {
			return creds, fmt.Errorf("member %d (%s): unknown role %q", i+1, email, m.Role)
		}

		_, err := directory.GetByEmail(ctx, email)
		if err == nil {
			creds = append(creds, Credential{Email: email, Role: role})
			continue
		}
		if !apperrors.IsNotFound(err) {
			return creds, fmt.Errorf("member %d (%s): %w", i+1, email, err)
		}

		password := m.Password
		if password == "" {
			if password, err = generatePassword(); err != nil {
				return creds, err
			}
		}
		hash, err := bcrypt.GenerateFromPassword([]byte(password), cost)
		if err != nil {
			return creds, fmt.Errorf("member %d (%s): hash password: %w", i+1, email, err)
		}

		profile := &models.Profile{
			Email:    email,
			Password: string(hash),
			FullName: strings.TrimSpace(m.FullName),
			Role:     role,
		}
		if err := directory.Create(ctx, profile); err != nil {
			return creds, fmt.Errorf("member %d (%s): %w", i+1, email, err)
		}
		creds = append(creds, Credential{Email: email, Password: password, Role: role, Created: true})
	}
	return creds, nil
}

func generatePassword() (string, error) {
	buf := make([]byte, 12)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate password: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
