package command

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/varctl/varctlgo/internal/meta"
)

const bashCompletionScript = `# bash completion for varctl
# Fallback if bash-completion is not installed
if ! declare -F _get_comp_words_by_ref >/dev/null 2>&1; then
  _get_comp_words_by_ref() {
    cur=${COMP_WORDS[COMP_CWORD]}
    prev=${COMP_WORDS[COMP_CWORD-1]}
  }
fi

_varctl()
{
    local cur prev cmd
    COMPREPLY=()
    _get_comp_words_by_ref -n : cur prev

    if [[ ${COMP_CWORD} -eq 1 ]]; then
        COMPREPLY=( $(compgen -W "get langs record snap tq watch completion --help --version" -- "$cur") )
        return 0
    fi

    cmd=${COMP_WORDS[1]}
  local common="--attrs -a --color -c --filter -f --local --output -o --sort -s --titles -t --tldr"

    case "$cmd" in
    get)
      local opts="$common --schema --source --tags --lang --catalog --project -p --wait --passphrase"
            ;;
        langs)
      local opts="$common --schema --lang --catalog"
            ;;
        record)
            if [[ ${COMP_CWORD} -eq 2 ]]; then
                COMPREPLY=( $(compgen -W "run ls tail" -- "$cur") )
                return 0
            fi
            case "${COMP_WORDS[2]}" in
            run)  local opts="--dir --interval --for --source --tags --project -p --passphrase --tldr" ;;
            ls)   local opts="$common --schema --dir" ;;
            tail) local opts="--dir --lines -n --tldr" ;;
            *)    local opts="" ;;
            esac
            ;;
        snap)
      local opts="$common --diff --passphrase --seal"
            ;;
        tq)
      local opts="$common --schema --chop --tags --project -p"
            ;;
        watch)
      local opts="--source --tags --lang --catalog --project -p --passphrase --tldr"
            ;;
        completion)
            local opts="bash zsh"
            COMPREPLY=( $(compgen -W "$opts" -- "$cur") )
            return 0
            ;;
        *)
            local opts="$common"
            ;;
    esac

    if [[ "$prev" == "--output" || "$prev" == "-o" ]]; then
        COMPREPLY=( $(compgen -W "text json raw yaml" -- "$cur") )
        return 0
    fi

  if [[ "$cur" == -* ]]; then
    COMPREPLY=( $(compgen -W "$opts" -- "$cur") )
    return 0
  fi

  # Otherwise we're on a positional (tag spec, label key or file) - complete files
  COMPREPLY=( $(compgen -o default -- "$cur") )
  return 0
}

complete -F _varctl varctl
`

const zshCompletionScript = `#compdef varctl

_varctl() {
  local -a cmds
  cmds=(
    'get:read current variable values'
    'langs:label catalog query'
    'record:record variable readings to CSV'
    'snap:snapshot query'
    'tq:tag definition query'
    'watch:live variable view'
    'completion:generate shell completion script'
  )

  local -a common
  common=(
  '(-a --attrs)'{-a,--attrs}'[attributes to include]:attrs'
  '(-c --color)'{-c,--color}'[enable colored text]'
  '(-f --filter)'{-f,--filter}'[filters to apply]:filters'
  '--local[render timestamps in local time]'
  '(-o --output)'{-o,--output}'[output format]:format:(text json raw yaml)'
  '(-s --sort)'{-s,--sort}'[sort attributes]:attrs'
  '(-t --titles)'{-t,--titles}'[show titles]'
  '--tldr[show tldr page]'
  )

  if (( CURRENT == 2 )); then
    _describe -t commands 'varctl commands' cmds
    return
  fi

  local curcontext="$curcontext" state line
  case $words[2] in
    get)
      _arguments -C \
        $common \
        '--schema[dump schema]' \
        '--source[plant source spec]:spec' \
        '--tags[tag definition file]:file:_files' \
        '--lang[label language]:lang' \
        '--catalog[label catalog directory]:dir:_directories' \
        '(-p --project)'{-p,--project}'[project scope]:project' \
        '--wait[ms to wait for the source]:ms' \
        '--passphrase[sealed snapshot passphrase]' \
        '*::Tag:'
      ;;
    langs)
      _arguments -C \
        $common \
        '--schema[dump schema]' \
        '--lang[label language]:lang' \
        '--catalog[label catalog directory]:dir:_directories' \
        '*::LabelKey:'
      ;;
    record)
      _arguments '2: :((run ls tail))' \
        '--dir[recordings directory]:dir:_directories' \
        '--interval[ms between records]:ms' \
        '--for[ms to record]:ms' \
        '--source[plant source spec]:spec' \
        '--tags[tag definition file]:file:_files' \
        '(-n --lines)'{-n,--lines}'[lines to print]:n'
      ;;
    snap)
      _arguments -C \
        $common \
        '--diff[diff two snapshots]' \
        '--passphrase[sealed snapshot passphrase]' \
        '--seal[write sealed copy]:file:_files' \
        '*:SnapSpec:_files'
      ;;
    tq)
      _arguments -C \
        $common \
        '--schema[dump schema]' \
        '--chop[chop common label prefix]' \
        '--tags[tag definition file]:file:_files' \
        '(-p --project)'{-p,--project}'[project scope]:project' \
        '*::Tag:'
      ;;
    watch)
      _arguments -C \
        '--source[plant source spec]:spec' \
        '--tags[tag definition file]:file:_files' \
        '--lang[label language]:lang' \
        '--catalog[label catalog directory]:dir:_directories' \
        '(-p --project)'{-p,--project}'[project scope]:project' \
        '--passphrase[sealed snapshot passphrase]' \
        '*::Tag:'
      ;;
    completion)
      _arguments '1: :((bash zsh))'
      ;;
    *)
      _arguments -C $common
      ;;
  esac
}

# If this file is sourced directly (not autoloaded via fpath), ensure compsys is initialized and register the completion
if ! typeset -f compdef >/dev/null 2>&1; then
  autoload -Uz compinit && compinit -i
fi
compdef _varctl varctl varctlgo
`

func CompletionCommandAction(ctx context.Context, cmd *cli.Command) error {
	shell := ""
	if args := cmd.Args().Slice(); len(args) > 0 {
		shell = args[0]
	}
	switch shell {
	case "bash":
		fmt.Fprint(os.Stdout, bashCompletionScript)
	case "zsh":
		fmt.Fprint(os.Stdout, zshCompletionScript)
	default:
		// Try to detect from SHELL or print help
		sh := os.Getenv("SHELL")
		if strings.HasSuffix(sh, "zsh") {
			fmt.Fprint(os.Stdout, zshCompletionScript)
		} else if strings.HasSuffix(sh, "bash") {
			fmt.Fprint(os.Stdout, bashCompletionScript)
		} else {
			fmt.Fprintln(os.Stderr, "usage: varctl completion [bash|zsh]")
			return nil
		}
	}
	return nil
}

func CompletionCommandBuilder(cmd *cli.Command, meta meta.Meta) *cli.Command {
	return &cli.Command{
		Name:      "completion",
		Usage:     "generate shell completion script",
		UsageText: "varctl completion [bash|zsh]",
		Metadata: map[string]any{
			"meta": meta,
		},
		Action: CompletionCommandAction,
	}
}
