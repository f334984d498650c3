package main

import (
	"context"
	"fmt"
	"strconv"
	"testing"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/innovalab/center/core/user"
	inmemdb "github.com/innovalab/center/storage/database/inmem"
	"github.com/innovalab/center/testutil"
)

var usrRepo user.Repository

func setup(t *testing.T) *commandLine {
	conf := testutil.NewConfig(t)
	usrRepo = inmemdb.NewUserRepository(inmemdb.Open())

	origRead := readPasswordFunc
	origGoose := gooseRunFunc
	t.Cleanup(func() {
		readPasswordFunc = origRead
		gooseRunFunc = origGoose
	})

	return &commandLine{
		usrSvc: user.NewService(usrRepo, nil, testutil.NewLogger(conf), nil),
	}
}

func mockPassword(pwd string) {
	readPasswordFunc = func(int) ([]byte, error) { return []byte(pwd), nil }
}

type cliTest struct {
	name       string
	args       []string // without program name
	wantErr    error
	wantErrStr string
}

func runCLITests(t *testing.T, cli *commandLine, tests []cliTest) {
	t.Helper()
	for _, tt := range tests {
		args := append([]string{"admin"}, tt.args...)

		t.Run(tt.name, func(t *testing.T) {
			err := cli.run(args)
			switch {
			case tt.wantErr != nil:
				assert.Equal(t, tt.wantErr, err)
			case tt.wantErrStr != "":
				require.Error(t, err)
				assert.Equal(t, tt.wantErrStr, err.Error())
			default:
				assert.NoError(t, err)
			}
		})
	}
}

func Test_commandLine_migrate(t *testing.T) {
	cli := setup(t)

	var calls []string
	gooseRunFunc = func(_ *sqlx.DB, command string, args ...string) error {
		switch command {
		case "up", "up-by-one", "down", "fix", "redo", "reset", "status", "version": // pass
		case "up-to", "down-to":
			if len(args) == 0 {
				return fmt.Errorf("%s must be of form: goose [OPTIONS] DRIVER DBSTRING %s VERSION", command, command)
			}
			if _, err := strconv.ParseInt(args[0], 10, 64); err != nil {
				return fmt.Errorf("version must be a number (got '%s')", args[0])
			}
		default:
			return fmt.Errorf("%q: no such command", command)
		}
		calls = append(calls, command)
		return nil
	}

	runCLITests(t, cli, []cliTest{
		{name: "no subcommand", args: []string{"migrate"}, wantErr: errHelp},
		{name: "unknown subcommand", args: []string{"migrate", "lol"}, wantErrStr: "\"lol\": no such command"},
		{name: "up-to: no args", args: []string{"migrate", "up-to"}, wantErrStr: "up-to must be of form: goose [OPTIONS] DRIVER DBSTRING up-to VERSION"},
		{name: "up-to: non-int arg", args: []string{"migrate", "up-to", "lol"}, wantErrStr: "version must be a number (got 'lol')"},
		{name: "down-to: no args", args: []string{"migrate", "down-to"}, wantErrStr: "down-to must be of form: goose [OPTIONS] DRIVER DBSTRING down-to VERSION"},
		{name: "up", args: []string{"migrate", "up"}},
		{name: "up-to", args: []string{"migrate", "up-to", "2"}},
		{name: "down", args: []string{"migrate", "down"}},
		{name: "down-to", args: []string{"migrate", "down-to", "1"}},
		{name: "redo", args: []string{"migrate", "redo"}},
		{name: "status", args: []string{"migrate", "status"}},
	})
	assert.Equal(t, []string{"up", "up-to", "down", "down-to", "redo", "status"}, calls)
}

func Test_commandLine_addUser(t *testing.T) {
	cli := setup(t)
	ctx := context.Background()
	mockPassword("Secreto#2024")

	runCLITests(t, cli, []cliTest{
		{name: "no command", wantErr: errHelp},
		{name: "unknown command", args: []string{"lol"}, wantErr: errHelp},
		{name: "no args", args: []string{"adduser"}, wantErr: errHelp},
		{name: "missing names", args: []string{"adduser", "-email", "ana@test.pe"}, wantErr: errHelp},
		{name: "student", args: []string{"adduser", "-email", "Ana@Test.pe", "-names", "Ana", "-surnames", "Diaz"}},
		{
			name:    "duplicate student",
			args:    []string{"adduser", "-email", "ana@test.pe", "-names", "Ana", "-surnames", "Diaz"},
			wantErr: user.ErrEmailExists,
		},
		{name: "admin", args: []string{"adduser", "-email", "root@test.pe", "-names", "Root", "-surnames", "Admin", "-admin"}},
	})

	ana, err := usrRepo.GetUserByEmail(ctx, "ana@test.pe")
	require.NoError(t, err)
	assert.Equal(t, user.RoleStudent, ana.Role)
	assert.True(t, ana.IsVerified)
	assert.NoError(t, ana.CheckPassword("Secreto#2024"))

	root, err := usrRepo.GetUserByEmail(ctx, "root@test.pe")
	require.NoError(t, err)
	assert.Equal(t, user.RoleAdmin, root.Role)

	// promoting an existing student
	mockPassword("Nueva#2024")
	runCLITests(t, cli, []cliTest{
		{name: "promote", args: []string{"adduser", "-email", "ana@test.pe", "-names", "Ana", "-surnames", "Diaz", "-admin"}},
	})
	ana, err = usrRepo.GetUserByEmail(ctx, "ana@test.pe")
	require.NoError(t, err)
	assert.Equal(t, user.RoleAdmin, ana.Role)
	assert.NoError(t, ana.CheckPassword("Nueva#2024"))

	// an empty password shows the usage
	mockPassword("")
	runCLITests(t, cli, []cliTest{
		{name: "empty password", args: []string{"adduser", "-email", "luis@test.pe", "-names", "Luis", "-surnames", "Rojas"}, wantErr: errHelp},
	})
}

func Test_commandLine_resetPassword(t *testing.T) {
	cli := setup(t)
	ctx := context.Background()
	usr := testutil.CreateUser(t, usrRepo, "Ana", "Diaz", "ana@test.pe", "Secreto#2024", user.RoleStudent)

	errTTY := errors.New("inappropriate ioctl for device")
	readPasswordFunc = func(int) ([]byte, error) { return nil, errTTY }
	runCLITests(t, cli, []cliTest{
		{name: "no args", args: []string{"resetpassword"}, wantErr: errHelp},
		{name: "no terminal", args: []string{"resetpassword", "-email", "ana@test.pe"}, wantErr: errTTY},
	})

	mockPassword("Nueva#2024")
	runCLITests(t, cli, []cliTest{
		{name: "unknown email", args: []string{"resetpassword", "-email", "nadie@test.pe"}, wantErr: user.ErrNotFound},
		{name: "ok", args: []string{"resetpassword", "-email", "ana@test.pe"}},
	})

	got, err := usrRepo.GetUserByID(ctx, usr.ID)
	require.NoError(t, err)
	assert.NoError(t, got.CheckPassword("Nueva#2024"))
}
