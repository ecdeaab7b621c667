package completion

import "fmt"

// Bash generates bash completion script
func Bash() {
	script := `# bash completion for freight
_freight_completion() {
    local cur prev opts
    COMPREPLY=()
    cur="${COMP_WORDS[COMP_CWORD]}"
    prev="${COMP_WORDS[COMP_CWORD-1]}"

    # Main commands
    if [ $COMP_CWORD -eq 1 ]; then
        opts="serve send status cancel sessions config completion"
        COMPREPLY=( $(compgen -W "${opts}" -- ${cur}) )
        return 0
    fi

    # Subcommand completion
    case "${COMP_WORDS[1]}" in
        serve)
            opts="-l --listen -d --dest --max-concurrent --rate-limit --http3 --no-qr --no-discovery -h --help"
            COMPREPLY=( $(compgen -W "${opts}" -- ${cur}) )
            ;;
        send)
            opts="-s --server --discover --chunk-size --workers --retries --multipart --compress --resume -h --help"
            COMPREPLY=( $(compgen -W "${opts}" -- ${cur}) )
            # File completion for paths
            if [[ ! ${cur} == -* ]]; then
                COMPREPLY=( $(compgen -f -- ${cur}) )
            fi
            ;;
        status|cancel)
            opts="-s --server -h --help"
            COMPREPLY=( $(compgen -W "${opts}" -- ${cur}) )
            ;;
        sessions)
            opts="-s --server --resumable -h --help"
            COMPREPLY=( $(compgen -W "${opts}" -- ${cur}) )
            ;;
        config)
            if [ $COMP_CWORD -eq 2 ]; then
                opts="show edit path"
                COMPREPLY=( $(compgen -W "${opts}" -- ${cur}) )
            fi
            ;;
        completion)
            if [ $COMP_CWORD -eq 2 ]; then
                opts="bash zsh fish powershell"
                COMPREPLY=( $(compgen -W "${opts}" -- ${cur}) )
            fi
            ;;
    esac
}

complete -F _freight_completion freight
`
	fmt.Print(script)
}
