package commands

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/onnwee/stream-bot/chat"
)

// Context is what a command sees of the message that invoked it.
type Context struct {
	Channel string
	User    chat.User
	Args    []string
	// Reply sends text to the invoking channel without blocking.
	Reply func(text string)
}

// Command is a chat command such as "!dice".
type Command interface {
	// Name is the lower-case trigger including the "!" prefix.
	Name() string
	Description() string
	Execute(ctx context.Context, c *Context) error
}

// Func adapts a plain function to Command.
type Func struct {
	Trigger string
	Help    string
	Run     func(ctx context.Context, c *Context) error
}

func (f Func) Name() string        { return f.Trigger }
func (f Func) Description() string { return f.Help }
func (f Func) Execute(ctx context.Context, c *Context) error {
	return f.Run(ctx, c)
}

// Registry maps command names to commands, preserving registration order.
type Registry struct {
	mu     sync.RWMutex
	byName map[string]Command
	order  []Command
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{byName: make(map[string]Command)}
}

// Register adds cmd. Names are case-insensitive; registering a name twice is an error.
func (r *Registry) Register(cmd Command) error {
	name := normalize(cmd.Name())
	if name == "" || name == "!" {
		return fmt.Errorf("command name empty")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, dup := r.byName[name]; dup {
		return fmt.Errorf("command %s already registered", name)
	}
	r.byName[name] = cmd
	r.order = append(r.order, cmd)
	return nil
}

// Lookup finds a command by its trigger token, e.g. "!Dice".
func (r *Registry) Lookup(name string) (Command, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	cmd, ok := r.byName[normalize(name)]
	return cmd, ok
}

// List returns all commands in registration order.
func (r *Registry) List() []Command {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]Command(nil), r.order...)
}

func normalize(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	if !strings.HasPrefix(name, "!") {
		name = "!" + name
	}
	return name
}
