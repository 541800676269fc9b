package loginctl

import (
	"context"
	"fmt"

	"github.com/godbus/dbus/v5"

	xlog "github.com/SoarinFerret/SessionTally/internal/log"
)

// Watch forwards logind session signals from the system bus to h until ctx
// is done.
func Watch(ctx context.Context, h Handler) error {
	conn, err := dbus.ConnectSystemBus()
	if err != nil {
		return fmt.Errorf("failed to connect to system bus: %w", err)
	}
	defer conn.Close()

	logger := xlog.WithComponent("loginctl")

	// Add a match rule for relevant signals
	signalMatches := []struct {
		member string
	}{
		{"SessionNew"},
		{"SessionRemoved"},
		{"PrepareForSleep"},
	}
	for _, match := range signalMatches {
		if err := conn.AddMatchSignal(
			dbus.WithMatchObjectPath("/org/freedesktop/login1"),
			dbus.WithMatchInterface("org.freedesktop.login1.Manager"),
			dbus.WithMatchMember(match.member),
		); err != nil {
			return fmt.Errorf("add match failed: %w", err)
		}
	}

	// watch for property changes (session locked)
	if err := conn.AddMatchSignal(
		dbus.WithMatchInterface("org.freedesktop.DBus.Properties"),
		dbus.WithMatchMember("PropertiesChanged"),
	); err != nil {
		return fmt.Errorf("add match for PropertiesChanged failed: %w", err)
	}

	c := make(chan *dbus.Signal, 10)
	conn.Signal(c)
	defer conn.RemoveSignal(c)

	for {
		select {
		case sig := <-c:
			if err := dispatch(conn, h, sig); err != nil {
				logger.Warn().Err(err).Str("signal", sig.Name).Msg("failed to handle logind signal")
			}
		case <-ctx.Done():
			return nil
		}
	}
}

// dispatch routes one logind signal to h.
func dispatch(conn *dbus.Conn, h Handler, sig *dbus.Signal) error {
	switch sig.Name {
	case "org.freedesktop.login1.Manager.SessionNew":
		if len(sig.Body) < 2 {
			return nil
		}
		sessionPath, ok := sig.Body[1].(dbus.ObjectPath)
		if !ok {
			return fmt.Errorf("SessionNew: failed to get session object path")
		}

		class, err := getSessionClass(conn, sessionPath)
		if err != nil {
			return fmt.Errorf("SessionNew: failed to get session class: %w", err)
		}
		if class != "user" {
			return nil // Ignore non-user sessions
		}

		username, err := getUsernameFromSession(conn, sessionPath)
		if err != nil {
			return fmt.Errorf("SessionNew: %w", err)
		}
		return h.HandleLogin(username, string(sessionPath))

	case "org.freedesktop.login1.Manager.SessionRemoved":
		if len(sig.Body) < 2 {
			return nil
		}
		sessionPath, ok := sig.Body[1].(dbus.ObjectPath)
		if !ok {
			return fmt.Errorf("SessionRemoved: failed to get session object path")
		}
		return h.HandleLogout(string(sessionPath))

	case "org.freedesktop.login1.Manager.PrepareForSleep":
		if len(sig.Body) == 0 {
			return nil
		}
		sleeping, _ := sig.Body[0].(bool)
		if sleeping {
			return h.HandleSleep()
		}
		return h.HandleWake()

	case "org.freedesktop.DBus.Properties.PropertiesChanged":
		if len(sig.Body) < 3 {
			return nil
		}
		iface, ok := sig.Body[0].(string)
		if !ok || iface != "org.freedesktop.login1.Session" {
			return nil
		}
		changedProps, ok := sig.Body[1].(map[string]dbus.Variant)
		if !ok {
			return nil
		}
		val, exists := changedProps["LockedHint"]
		if !exists {
			return nil
		}
		locked, _ := val.Value().(bool)
		username, err := getUsernameFromSession(conn, sig.Path)
		if err != nil {
			return fmt.Errorf("LockedHint: %w", err)
		}
		if locked {
			return h.HandleLock(username, string(sig.Path))
		}
		return h.HandleUnlock(username, string(sig.Path))
	}
	return nil
}

func getUsernameFromSession(conn *dbus.Conn, sessionPath dbus.ObjectPath) (string, error) {
	sessionObj := conn.Object("org.freedesktop.login1", sessionPath)

	var userInfo []interface{}
	err := sessionObj.Call("org.freedesktop.DBus.Properties.Get", 0,
		"org.freedesktop.login1.Session", "User").Store(&userInfo)
	if err != nil || len(userInfo) < 2 {
		return "", fmt.Errorf("failed to get user info: %w", err)
	}
	userPath, ok := userInfo[1].(dbus.ObjectPath)
	if !ok {
		return "", fmt.Errorf("failed to get user object path")
	}
	userObj := conn.Object("org.freedesktop.login1", userPath)
	var username dbus.Variant
	err = userObj.Call("org.freedesktop.DBus.Properties.Get", 0,
		"org.freedesktop.login1.User", "Name").Store(&username)
	if err != nil {
		return "", fmt.Errorf("failed to get username: %w", err)
	}
	return username.Value().(string), nil
}

func getSessionClass(conn *dbus.Conn, sessionPath dbus.ObjectPath) (string, error) {
	obj := conn.Object("org.freedesktop.login1", sessionPath)
	var class dbus.Variant
	err := obj.Call("org.freedesktop.DBus.Properties.Get", 0,
		"org.freedesktop.login1.Session", "Class").Store(&class)
	if err != nil {
		return "", err
	}
	// The value is returned as a dbus.Variant
	if v, ok := class.Value().(string); ok {
		return v, nil
	}
	return "", fmt.Errorf("unexpected type for session class")
}
