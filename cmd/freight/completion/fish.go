package completion

import "fmt"

// Fish generates fish completion script
func Fish() {
	script := `# fish completion for freight

# Main commands
complete -c freight -f -n '__fish_use_subcommand' -a serve -d 'Receive chunked uploads into a directory'
complete -c freight -f -n '__fish_use_subcommand' -a send -d 'Upload a file in resumable chunks'
complete -c freight -f -n '__fish_use_subcommand' -a status -d 'Show the progress of one upload session'
complete -c freight -f -n '__fish_use_subcommand' -a cancel -d 'Abort an upload session'
complete -c freight -f -n '__fish_use_subcommand' -a sessions -d 'List upload sessions on a server'
complete -c freight -f -n '__fish_use_subcommand' -a config -d 'Manage configuration file'
complete -c freight -f -n '__fish_use_subcommand' -a completion -d 'Generate shell completion scripts'

# serve command
complete -c freight -f -n '__fish_seen_subcommand_from serve' -s l -l listen -d 'Listen address'
complete -c freight -f -n '__fish_seen_subcommand_from serve' -s d -l dest -d 'Destination directory'
complete -c freight -f -n '__fish_seen_subcommand_from serve' -l max-concurrent -d 'Concurrent chunk upload ceiling'
complete -c freight -f -n '__fish_seen_subcommand_from serve' -l rate-limit -d 'Bandwidth limit in Mbps'
complete -c freight -f -n '__fish_seen_subcommand_from serve' -l http3 -d 'Enable the QUIC/HTTP3 listener'
complete -c freight -f -n '__fish_seen_subcommand_from serve' -l no-qr -d 'Skip QR code'
complete -c freight -f -n '__fish_seen_subcommand_from serve' -l no-discovery -d 'Disable mDNS advertising'
complete -c freight -f -n '__fish_seen_subcommand_from serve' -s h -l help -d 'Show help'

# send command
complete -c freight -n '__fish_seen_subcommand_from send' -s s -l server -d 'Server base URL'
complete -c freight -n '__fish_seen_subcommand_from send' -l discover -d 'Find a server via mDNS'
complete -c freight -n '__fish_seen_subcommand_from send' -l chunk-size -d 'Chunk size'
complete -c freight -n '__fish_seen_subcommand_from send' -l workers -d 'Parallel upload workers'
complete -c freight -n '__fish_seen_subcommand_from send' -l retries -d 'Retry attempts per chunk'
complete -c freight -n '__fish_seen_subcommand_from send' -l multipart -d 'Send chunks as multipart forms'
complete -c freight -n '__fish_seen_subcommand_from send' -l compress -d 'zstd-compress chunk bodies'
complete -c freight -n '__fish_seen_subcommand_from send' -l resume -d 'Resume an existing session id'
complete -c freight -n '__fish_seen_subcommand_from send' -s h -l help -d 'Show help'

# status command
complete -c freight -f -n '__fish_seen_subcommand_from status' -s s -l server -d 'Server base URL'
complete -c freight -f -n '__fish_seen_subcommand_from status' -s h -l help -d 'Show help'

# cancel command
complete -c freight -f -n '__fish_seen_subcommand_from cancel' -s s -l server -d 'Server base URL'
complete -c freight -f -n '__fish_seen_subcommand_from cancel' -s h -l help -d 'Show help'

# sessions command
complete -c freight -f -n '__fish_seen_subcommand_from sessions' -s s -l server -d 'Server base URL'
complete -c freight -f -n '__fish_seen_subcommand_from sessions' -l resumable -d 'Only sessions that can resume'
complete -c freight -f -n '__fish_seen_subcommand_from sessions' -s h -l help -d 'Show help'

# config command
complete -c freight -f -n '__fish_seen_subcommand_from config' -a 'show' -d 'Display current configuration'
complete -c freight -f -n '__fish_seen_subcommand_from config' -a 'edit' -d 'Open config file in editor'
complete -c freight -f -n '__fish_seen_subcommand_from config' -a 'path' -d 'Show config file path'

# completion command
complete -c freight -f -n '__fish_seen_subcommand_from completion' -a 'bash' -d 'Bash completion'
complete -c freight -f -n '__fish_seen_subcommand_from completion' -a 'zsh' -d 'Zsh completion'
complete -c freight -f -n '__fish_seen_subcommand_from completion' -a 'fish' -d 'Fish completion'
complete -c freight -f -n '__fish_seen_subcommand_from completion' -a 'powershell' -d 'PowerShell completion'
`
	fmt.Print(script)
}
