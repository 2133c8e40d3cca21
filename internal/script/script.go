// Package script generates the shell-side hook glue printed by
// `promptdeck init`. The glue does no lifecycle reasoning of its own:
// it reports precmd/preexec/keymap events over the @promptdeck DCS
// channel and leaves every decision to the supervisor. Outside a
// supervisor it falls back to patching the prompt-start mark into the
// prompt templates via `promptdeck prompt patch`.
package script

import (
	"fmt"
	"sort"
)

// EnvSession is set in the wrapped shell's environment by the
// supervisor; the glue uses it to detect that a supervisor is
// listening.
const EnvSession = "PROMPTDECK_SESSION"

var scripts = map[string]string{
	"zsh": `# promptdeck shell integration for zsh
# Reports prompt lifecycle events over a DCS side channel.

__promptdeck_emit() {
    builtin printf '\033P@promptdeck|%s\033\\' "$1"
}

# Status reporting and prompt patching need opposite hook positions:
# the reporter must see $? before any other hook runs a command, the
# patcher must run after any hook that rewrites the prompt. Two hooks.

__promptdeck_report() {
    __promptdeck_emit "precmd;$?"

    # Stay first so an earlier hook cannot clobber the status;
    # re-prepend when displaced.
    if [[ ${precmd_functions[1]} != __promptdeck_report ]]; then
        precmd_functions=(__promptdeck_report ${precmd_functions:#__promptdeck_report})
    fi
}

__promptdeck_precmd() {
    # Stay last in the hook order so later hooks cannot undo prompt
    # patching; re-append when displaced.
    if [[ ${precmd_functions[-1]} != __promptdeck_precmd ]]; then
        precmd_functions=(${precmd_functions:#__promptdeck_precmd} __promptdeck_precmd)
    fi

    # Without a supervisor, fall back to marking the prompt templates
    # directly (idempotent; a supervisor emits the marks itself).
    if [[ -z $PROMPTDECK_SESSION ]] && (( ${+commands[promptdeck]} )); then
        PS1="$(command promptdeck prompt patch -shell zsh -- "$PS1")"
        PS2="$(command promptdeck prompt patch -shell zsh -continuation -- "$PS2")"
    fi
}

__promptdeck_preexec() {
    if [[ -z $PROMPTDECK_SESSION ]] && (( ${+commands[promptdeck]} )); then
        PS1="$(command promptdeck prompt strip -shell zsh -- "$PS1")"
        PS2="$(command promptdeck prompt strip -shell zsh -- "$PS2")"
    fi
    __promptdeck_emit "preexec;$(builtin printf %s "$1" | command base64 | command tr -d '\n')"
}

__promptdeck_line_init() {
    __promptdeck_emit "mode;${KEYMAP:-main}"
}

__promptdeck_keymap_select() {
    __promptdeck_emit "mode;${KEYMAP}"
}

autoload -Uz add-zsh-hook
add-zsh-hook precmd __promptdeck_report
add-zsh-hook precmd __promptdeck_precmd
add-zsh-hook preexec __promptdeck_preexec
precmd_functions=(__promptdeck_report ${precmd_functions:#__promptdeck_report})

autoload -Uz add-zle-hook-widget 2>/dev/null && {
    add-zle-hook-widget line-init __promptdeck_line_init
    add-zle-hook-widget keymap-select __promptdeck_keymap_select
}
`,

	"bash": `# promptdeck shell integration for bash
# Reports prompt lifecycle events over a DCS side channel.

__promptdeck_emit() {
    printf '\033P@promptdeck|%s\033\\' "$1"
}

__promptdeck_precmd() {
    # $? must be read before any other command runs, which is why this
    # hook sits first in PROMPT_COMMAND and clears the DEBUG latch
    # itself rather than a preceding assignment doing it.
    local ret=$?
    __promptdeck_ran=
    __promptdeck_emit "precmd;${ret}"
    if [[ -z $PROMPTDECK_SESSION ]] && command -v promptdeck >/dev/null 2>&1; then
        PS1="$(promptdeck prompt patch -shell bash -- "$PS1")"
        PS2="$(promptdeck prompt patch -shell bash -continuation -- "$PS2")"
    fi
    return $ret
}

__promptdeck_preexec() {
    # DEBUG fires for every simple command; only report the first one
    # after a prompt, and never our own hooks.
    [[ -n $COMP_LINE ]] && return
    [[ $BASH_COMMAND == __promptdeck_* ]] && return
    [[ -n $__promptdeck_ran ]] && return
    __promptdeck_ran=1
    __promptdeck_emit "preexec;$(printf %s "$BASH_COMMAND" | base64 | tr -d '\n')"
}

PROMPT_COMMAND="__promptdeck_precmd${PROMPT_COMMAND:+; $PROMPT_COMMAND}"
trap '__promptdeck_preexec' DEBUG
`,

	"fish": `# promptdeck shell integration for fish
# Reports prompt lifecycle events over a DCS side channel.

function __promptdeck_emit
    printf '\033P@promptdeck|%s\033\\' $argv[1]
end

function __promptdeck_precmd --on-event fish_prompt
    __promptdeck_emit "precmd;$status"
end

function __promptdeck_preexec --on-event fish_preexec
    __promptdeck_emit "preexec;"(printf %s $argv[1] | base64 | tr -d '\n')
end

function __promptdeck_mode --on-variable fish_bind_mode
    __promptdeck_emit "mode;$fish_bind_mode"
end
`,
}

// Script returns the hook glue for the named shell.
func Script(shell string) (string, error) {
	s, ok := scripts[shell]
	if !ok {
		return "", fmt.Errorf("unsupported shell %q (supported: zsh, bash, fish)", shell)
	}
	return s, nil
}

// Supported returns the shells Script accepts, sorted.
func Supported() []string {
	names := make([]string, 0, len(scripts))
	for name := range scripts {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
