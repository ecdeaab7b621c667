package completion

import "fmt"

// Zsh generates zsh completion script
func Zsh() {
	script := `#compdef freight

_freight() {
    local curcontext="$curcontext" state line
    typeset -A opt_args

    _arguments -C \
        '1: :->command' \
        '*:: :->args'

    case $state in
        command)
            local commands=(
                'serve:Receive chunked uploads into a directory'
                'send:Upload a file in resumable chunks'
                'status:Show the progress of one upload session'
                'cancel:Abort an upload session'
                'sessions:List upload sessions on a server'
                'config:Manage configuration file'
                'completion:Generate shell completion scripts'
            )
            _describe 'command' commands
            ;;
        args)
            case $line[1] in
                serve)
                    _arguments \
                        {-l,--listen}'[Listen address]' \
                        {-d,--dest}'[Destination directory]' \
                        '--max-concurrent[Concurrent chunk upload ceiling]' \
                        '--rate-limit[Bandwidth limit in Mbps]' \
                        '--http3[Enable the QUIC/HTTP3 listener]' \
                        '--no-qr[Skip QR code]' \
                        '--no-discovery[Disable mDNS advertising]' \
                        {-h,--help}'[Show help]'
                    ;;
                send)
                    _arguments \
                        {-s,--server}'[Server base URL]' \
                        '--discover[Find a server via mDNS]' \
                        '--chunk-size[Chunk size]' \
                        '--workers[Parallel upload workers]' \
                        '--retries[Retry attempts per chunk]' \
                        '--multipart[Send chunks as multipart forms]' \
                        '--compress[zstd-compress chunk bodies]' \
                        '--resume[Resume an existing session id]' \
                        {-h,--help}'[Show help]' \
                        '*:file:_files'
                    ;;
                status|cancel)
                    _arguments \
                        {-s,--server}'[Server base URL]' \
                        {-h,--help}'[Show help]'
                    ;;
                sessions)
                    _arguments \
                        {-s,--server}'[Server base URL]' \
                        '--resumable[Only sessions that can resume]' \
                        {-h,--help}'[Show help]'
                    ;;
                config)
                    local config_commands=(
                        'show:Display current configuration'
                        'edit:Open config file in editor'
                        'path:Show config file path'
                    )
                    _describe 'config command' config_commands
                    ;;
                completion)
                    local shells=(
                        'bash:Bash completion'
                        'zsh:Zsh completion'
                        'fish:Fish completion'
                        'powershell:PowerShell completion'
                    )
                    _describe 'shell' shells
                    ;;
            esac
            ;;
    esac
}

_freight "$@"
`
	fmt.Print(script)
}
